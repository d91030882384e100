package engine

import (
	"fmt"

	"github.com/efreitasn/toyexchange/internal/domain"
)

// Fill is the outcome of a buy or sell intent: the executed quantity and
// the pre-trade unit price it settled at.
type Fill struct {
	Executed int64
	Price    int64
}

// Amount is the cash that changed hands. Buy and Sell only return fills
// whose amount fits in an int64.
func (f Fill) Amount() int64 { return f.Executed * f.Price }

// Buy spends at most budget on shares of the available record pos. The
// affordable quantity is budget divided by the pre-trade unit price; the
// ledger may execute fewer shares when supply is short. The operator pays
// executed × pre-trade price and keeps any remainder.
//
// Only the executed cost has to be covered by the balance, not the whole
// budget. The check happens before the ledger is touched.
func Buy(op *domain.Operator, ex *Exchange, budget int64, pos *Position) (Fill, error) {
	if op == nil || ex == nil || pos == nil {
		return Fill{}, fmt.Errorf("buy: %w", domain.ErrMissingOperand)
	}
	if budget < 0 {
		return Fill{}, fmt.Errorf("buy with budget %d: %w", budget, domain.ErrNegativeQuantity)
	}
	if pos.exchange != ex || pos.holder != "" {
		return Fill{}, fmt.Errorf("buy %s on %s: %w", pos.company.Name, ex.name, domain.ErrPositionNotFound)
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()

	preTrade := pos.price
	affordable := budget / preTrade

	var fill Fill
	err := op.Transact(func(acct domain.Account) error {
		// cost <= budget, so it cannot overflow.
		cost := min(affordable, pos.quantity) * preTrade
		if cost > acct.Cash() {
			return fmt.Errorf("%s buys %s for %d with balance %d: %w",
				op.Name, pos.company.Name, cost, acct.Cash(), domain.ErrInsufficientBalance)
		}

		executed, err := ex.requestBuy(op, affordable, pos)
		if err != nil {
			return fmt.Errorf("%s buys %s for %d at %d: %w", op.Name, pos.company.Name, budget, preTrade, err)
		}
		fill = Fill{Executed: executed, Price: preTrade}
		acct.Settle(ex.name, -fill.Amount())
		return nil
	})
	if err != nil {
		return Fill{}, err
	}
	return fill, nil
}

// Sell disposes of up to quantity shares of company held by op on ex and
// credits executed × the available record's pre-trade unit price.
func Sell(op *domain.Operator, ex *Exchange, company *domain.Company, quantity int64) (Fill, error) {
	if op == nil || ex == nil || company == nil {
		return Fill{}, fmt.Errorf("sell: %w", domain.ErrMissingOperand)
	}
	if quantity < 0 {
		return Fill{}, fmt.Errorf("sell %d: %w", quantity, domain.ErrNegativeQuantity)
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()

	var preTrade int64
	if avail, ok := ex.lookup(company.Name); ok {
		preTrade = avail.price
	}

	var fill Fill
	err := op.Transact(func(acct domain.Account) error {
		if held, ok := ex.holding(op.Name, company.Name); ok {
			credit, fits := domain.MulUnits(min(quantity, held.quantity), preTrade)
			if fits {
				_, fits = domain.AddUnits(acct.Cash(), credit)
			}
			if !fits {
				return fmt.Errorf("%s sells %d %s at %d: %w", op.Name, quantity, company.Name, preTrade, domain.ErrAmountOverflow)
			}
		}

		executed, err := ex.requestSell(op, quantity, company)
		if err != nil {
			return err
		}
		fill = Fill{Executed: executed, Price: preTrade}
		acct.Settle(ex.name, fill.Amount())
		return nil
	})
	if err != nil {
		return Fill{}, err
	}
	return fill, nil
}

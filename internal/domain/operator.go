package domain

import (
	"fmt"
	"sync"
	"time"
)

// Operator is a trader holding a cash balance. The balance is expressed in
// whole currency units and is never negative after a mutation completes.
type Operator struct {
	Name      string
	CreatedAt time.Time

	mu        sync.Mutex // guards cash and exchanges
	cash      int64
	exchanges map[string]struct{}
}

// NewOperator validates the name and opening balance.
func NewOperator(name string, balance int64) (*Operator, error) {
	if err := ValidateName("operator", name); err != nil {
		return nil, err
	}
	if balance < 0 {
		return nil, NewConfigError("initial_balance", "must be >= 0, got %d", balance)
	}
	return &Operator{
		Name:      name,
		CreatedAt: time.Now(),
		cash:      balance,
		exchanges: make(map[string]struct{}),
	}, nil
}

// Cash returns the current balance.
func (o *Operator) Cash() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cash
}

// Exchanges returns the names of the exchanges the operator has traded on,
// sorted by name.
func (o *Operator) Exchanges() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return sortedKeys(o.exchanges)
}

// Deposit adds amount to the balance.
func (o *Operator) Deposit(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("deposit %d: %w", amount, ErrNegativeQuantity)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := AddUnits(o.cash, amount); !ok {
		return fmt.Errorf("deposit %d with balance %d: %w", amount, o.cash, ErrAmountOverflow)
	}
	o.cash += amount
	return nil
}

// Withdraw removes amount from the balance. It fails without touching the
// balance when the operator cannot cover it.
func (o *Operator) Withdraw(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("withdraw %d: %w", amount, ErrNegativeQuantity)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if amount > o.cash {
		return fmt.Errorf("withdraw %d with balance %d: %w", amount, o.cash, ErrInsufficientBalance)
	}
	o.cash -= amount
	return nil
}

// Transact runs fn with the operator locked. The Account handed to fn is
// only valid until fn returns.
func (o *Operator) Transact(fn func(Account) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(Account{op: o})
}

// Account is the locked view of an operator inside Transact.
type Account struct {
	op *Operator
}

// Cash returns the balance.
func (a Account) Cash() int64 {
	return a.op.cash
}

// Settle applies the cash side of an executed trade and records the
// exchange it happened on. A negative delta is a debit.
//
// Settlement amounts are derived from quantities the ledger already
// authorized, so a balance leaving [0, MaxInt64] here is a defect and
// panics.
func (a Account) Settle(exchange string, delta int64) {
	o := a.op
	if delta < 0 && -delta > o.cash {
		panic(InvariantViolation{
			What:   "operator balance",
			Detail: fmt.Sprintf("%s: debit %d exceeds balance %d", o.Name, -delta, o.cash),
		})
	}
	if delta > 0 {
		if _, ok := AddUnits(o.cash, delta); !ok {
			panic(InvariantViolation{
				What:   "operator balance",
				Detail: fmt.Sprintf("%s: credit %d overflows balance %d", o.Name, delta, o.cash),
			})
		}
	}
	o.exchanges[exchange] = struct{}{}
	o.cash += delta
}

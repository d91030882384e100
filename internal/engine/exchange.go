package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/pricing"
)

// HoldingView is an operator's position on an exchange.
type HoldingView struct {
	Operator string
	PositionView
}

// Exchange is the authoritative ledger for one trading venue: listed
// companies, available supply per listing, each operator's holdings and
// the active pricing policy.
//
// Every exported method holds the exchange lock for its whole
// check-clamp-mutate sequence, so operations on one exchange are
// serialized.
type Exchange struct {
	name string

	mu        sync.RWMutex
	companies map[string]*domain.Company
	available *btree.BTreeG[*Position]
	holdings  map[string]map[string]*Position // operator → company → held position
	policy    pricing.Policy
	nextSeq   uint64
}

// NewExchange validates the name and returns an empty exchange with no
// pricing policy.
func NewExchange(name string) (*Exchange, error) {
	if err := domain.ValidateName("exchange", name); err != nil {
		return nil, err
	}
	const degree = 16
	return &Exchange{
		name:      name,
		companies: make(map[string]*domain.Company),
		available: btree.NewG[*Position](degree, positionLess),
		holdings:  make(map[string]map[string]*Position),
	}, nil
}

// Name returns the exchange name.
func (ex *Exchange) Name() string { return ex.name }

// Policy returns the active pricing policy.
func (ex *Exchange) Policy() pricing.Policy {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.policy
}

// SetPolicy replaces the pricing policy. The previous one is discarded.
func (ex *Exchange) SetPolicy(p pricing.Policy) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.policy = p
}

// List puts quantity shares of c up for sale at price. Listing the same
// company again creates a further, independent available record.
func (ex *Exchange) List(c *domain.Company, price, quantity int64) (*Position, error) {
	if c == nil {
		return nil, fmt.Errorf("list on %s: %w", ex.name, domain.ErrMissingOperand)
	}
	if price < 1 || quantity < 1 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("price and quantity must be >= 1, got price=%d quantity=%d", price, quantity),
		}
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()

	ex.companies[c.Name] = c
	c.AddExchange(ex.name)

	ex.nextSeq++
	pos := &Position{
		company:  c,
		exchange: ex,
		seq:      ex.nextSeq,
		price:    price,
		quantity: quantity,
	}
	ex.available.ReplaceOrInsert(pos)
	return pos, nil
}

// RequestBuy moves up to quantity shares from the available record pos to
// op's holding and reprices pos. It returns the executed quantity, which
// is 0 without any change when pos is sold out.
func (ex *Exchange) RequestBuy(op *domain.Operator, quantity int64, pos *Position) (int64, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.requestBuy(op, quantity, pos)
}

// RequestSell moves up to quantity shares of company out of op's holding
// and reprices the company's available record. It returns the executed
// quantity.
//
// The available record grows by the requested quantity, not the executed
// one, so a sell clamped to the holding still adds the full request to
// the exchange's supply.
func (ex *Exchange) RequestSell(op *domain.Operator, quantity int64, company *domain.Company) (int64, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.requestSell(op, quantity, company)
}

func (ex *Exchange) requestBuy(op *domain.Operator, quantity int64, pos *Position) (int64, error) {
	if op == nil || pos == nil || quantity == 0 {
		return 0, fmt.Errorf("buy on %s: %w", ex.name, domain.ErrMissingOperand)
	}
	if quantity < 0 {
		return 0, fmt.Errorf("buy %d on %s: %w", quantity, ex.name, domain.ErrNegativeQuantity)
	}
	if pos.exchange != ex || pos.holder != "" {
		return 0, fmt.Errorf("buy %s on %s: %w", pos.company.Name, ex.name, domain.ErrPositionNotFound)
	}
	if pos.quantity == 0 {
		return 0, nil
	}

	executed := min(quantity, pos.quantity)
	newPrice, err := ex.policy.OnBuy(pos.view(), executed)
	if err != nil {
		return 0, err
	}

	held, hasHeld := ex.holding(op.Name, pos.company.Name)
	if hasHeld {
		if _, ok := domain.AddUnits(held.quantity, executed); !ok {
			return 0, fmt.Errorf("%s buys %d %s on %s: %w", op.Name, executed, pos.company.Name, ex.name, domain.ErrAmountOverflow)
		}
	}

	preTrade := pos.price
	pos.quantity -= executed
	if hasHeld {
		held.quantity += executed
	} else {
		ex.addHolding(&Position{
			company:  pos.company,
			exchange: ex,
			holder:   op.Name,
			price:    preTrade,
			quantity: executed,
		})
	}
	pos.price = newPrice
	return executed, nil
}

func (ex *Exchange) requestSell(op *domain.Operator, quantity int64, company *domain.Company) (int64, error) {
	if op == nil || company == nil || quantity == 0 {
		return 0, fmt.Errorf("sell on %s: %w", ex.name, domain.ErrMissingOperand)
	}
	if quantity < 0 {
		return 0, fmt.Errorf("sell %d on %s: %w", quantity, ex.name, domain.ErrNegativeQuantity)
	}
	held, ok := ex.holding(op.Name, company.Name)
	if !ok {
		return 0, fmt.Errorf("%s sells %s on %s: %w", op.Name, company.Name, ex.name, domain.ErrNoHolding)
	}
	avail, ok := ex.lookup(company.Name)
	if !ok {
		return 0, fmt.Errorf("sell %s on %s: %w", company.Name, ex.name, domain.ErrPositionNotFound)
	}

	if _, ok := domain.AddUnits(avail.quantity, quantity); !ok {
		return 0, fmt.Errorf("sell %d %s on %s: %w", quantity, company.Name, ex.name, domain.ErrAmountOverflow)
	}

	executed := min(quantity, held.quantity)
	newPrice, err := ex.policy.OnSell(avail.view(), executed)
	if err != nil {
		return 0, err
	}

	if executed == held.quantity {
		ex.removeHolding(held)
	}
	held.quantity -= executed
	avail.price = newPrice
	avail.quantity += quantity
	return executed, nil
}

// Lookup returns the first available record for the company, in listing
// order.
func (ex *Exchange) Lookup(company string) (*Position, bool) {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.lookup(company)
}

// HoldingOf returns the operator's held record for the company.
func (ex *Exchange) HoldingOf(operator, company string) (*Position, bool) {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.holding(operator, company)
}

// Companies returns the listed companies sorted by name.
func (ex *Exchange) Companies() []string {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return sortedNames(ex.companies)
}

// Positions returns every available record ordered by company name.
func (ex *Exchange) Positions() []PositionView {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	out := make([]PositionView, 0, ex.available.Len())
	ex.available.Ascend(func(p *Position) bool {
		out = append(out, p.view())
		return true
	})
	return out
}

// Holdings returns every held record ordered by operator, then company.
func (ex *Exchange) Holdings() []HoldingView {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	var out []HoldingView
	for _, op := range sortedNames(ex.holdings) {
		for _, v := range ex.holdingsOf(op) {
			out = append(out, HoldingView{Operator: op, PositionView: v})
		}
	}
	return out
}

// HoldingsOf returns the operator's held records ordered by company.
func (ex *Exchange) HoldingsOf(operator string) []PositionView {
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.holdingsOf(operator)
}

func (ex *Exchange) holdingsOf(operator string) []PositionView {
	set := ex.holdings[operator]
	out := make([]PositionView, 0, len(set))
	for _, company := range sortedNames(set) {
		out = append(out, set[company].view())
	}
	return out
}

func (ex *Exchange) lookup(company string) (*Position, bool) {
	pivot := &Position{company: &domain.Company{Name: company}}
	var found *Position
	ex.available.AscendGreaterOrEqual(pivot, func(p *Position) bool {
		if p.company.Name == company {
			found = p
		}
		return false
	})
	return found, found != nil
}

func (ex *Exchange) holding(operator, company string) (*Position, bool) {
	p, ok := ex.holdings[operator][company]
	return p, ok
}

func (ex *Exchange) addHolding(p *Position) {
	set, ok := ex.holdings[p.holder]
	if !ok {
		set = make(map[string]*Position)
		ex.holdings[p.holder] = set
	}
	set[p.company.Name] = p
}

func (ex *Exchange) removeHolding(p *Position) {
	set := ex.holdings[p.holder]
	delete(set, p.company.Name)
	if len(set) == 0 {
		delete(ex.holdings, p.holder)
	}
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

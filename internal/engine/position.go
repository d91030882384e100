package engine

import "github.com/efreitasn/toyexchange/internal/domain"

// Position is a quantity of one company's shares on one exchange at a unit
// price. The same shape serves both the exchange's unsold supply and an
// operator's holding; Holder tells them apart.
//
// Company and exchange are fixed at construction. Price and quantity are
// only mutated by the owning Exchange while it holds its lock.
type Position struct {
	company  *domain.Company
	exchange *Exchange
	holder   string // operator name, "" for available supply
	seq      uint64 // listing order among available records

	price    int64
	quantity int64
}

// PositionView is a point-in-time copy of a position. It satisfies
// pricing.Subject.
type PositionView struct {
	Company  string
	Exchange string
	Holder   string
	Price    int64
	Quantity int64
}

func (v PositionView) UnitPrice() int64     { return v.Price }
func (v PositionView) CompanyName() string  { return v.Company }
func (v PositionView) ExchangeName() string { return v.Exchange }

// Value is quantity × unit price.
func (v PositionView) Value() int64 { return v.Price * v.Quantity }

// Company returns the listed company.
func (p *Position) Company() *domain.Company { return p.company }

// View copies the position's current state under the exchange lock.
func (p *Position) View() PositionView {
	p.exchange.mu.RLock()
	defer p.exchange.mu.RUnlock()
	return p.view()
}

func (p *Position) view() PositionView {
	return PositionView{
		Company:  p.company.Name,
		Exchange: p.exchange.name,
		Holder:   p.holder,
		Price:    p.price,
		Quantity: p.quantity,
	}
}

// positionLess orders available records by company name, then by listing
// order so repeated listings of the same company coexist.
func positionLess(a, b *Position) bool {
	if a.company.Name != b.company.Name {
		return a.company.Name < b.company.Name
	}
	return a.seq < b.seq
}

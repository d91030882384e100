package service

import (
	"time"

	"github.com/efreitasn/toyexchange/internal/engine"
	"github.com/efreitasn/toyexchange/internal/store"
)

// HolderLine is one operator's stake in a company on an exchange.
type HolderLine struct {
	Operator string
	Quantity int64
	Price    int64
}

// CompanyLine describes a company on one exchange. Price and Available
// come from the company's first available record; Listings holds every
// record in listing order.
type CompanyLine struct {
	Company   string
	Price     int64
	Available int64
	Listings  []engine.PositionView
	Holders   []HolderLine
}

// ExchangeReport is a snapshot of one exchange.
type ExchangeReport struct {
	Name      string
	Policy    string
	Companies []CompanyLine
}

// CompanyReport lists the exchanges a company is listed on.
type CompanyReport struct {
	Name      string
	Exchanges []string
}

// HoldingLine is one held record of an operator.
type HoldingLine struct {
	Exchange string
	Company  string
	Quantity int64
	Price    int64
	Value    int64
}

// OperatorReport is an operator's account statement. HoldingsValue values
// each holding at the unit price it was first bought at; TotalCapital adds
// the cash balance.
type OperatorReport struct {
	Name          string
	CreatedAt     time.Time
	Cash          int64
	Exchanges     []string
	Holdings      []HoldingLine
	HoldingsValue int64
	TotalCapital  int64
}

// QuoteLine pairs a name with a sorted list of related names.
type QuoteLine struct {
	Name  string
	Items []string
}

// QuotesReport cross-references listings both ways.
type QuotesReport struct {
	Companies []QuoteLine // company → exchanges
	Exchanges []QuoteLine // exchange → companies
}

// ReportService builds read-only views over the registries.
type ReportService struct {
	companies *store.CompanyStore
	exchanges *store.ExchangeStore
	operators *store.OperatorStore
}

// NewReportService creates a new ReportService.
func NewReportService(
	companies *store.CompanyStore,
	exchanges *store.ExchangeStore,
	operators *store.OperatorStore,
) *ReportService {
	return &ReportService{
		companies: companies,
		exchanges: exchanges,
		operators: operators,
	}
}

// Exchange returns the snapshot of the named exchange.
func (s *ReportService) Exchange(name string) (*ExchangeReport, error) {
	ex, err := s.exchanges.Get(name)
	if err != nil {
		return nil, err
	}
	return exchangeReport(ex), nil
}

// Exchanges returns a snapshot of every exchange, sorted by name.
func (s *ReportService) Exchanges() []*ExchangeReport {
	all := s.exchanges.List()
	out := make([]*ExchangeReport, 0, len(all))
	for _, ex := range all {
		out = append(out, exchangeReport(ex))
	}
	return out
}

func exchangeReport(ex *engine.Exchange) *ExchangeReport {
	// Positions and Holdings are separate snapshots; a trade landing
	// between them can make the report inconsistent by that one trade.
	listings := make(map[string][]engine.PositionView)
	for _, p := range ex.Positions() {
		listings[p.Company] = append(listings[p.Company], p)
	}
	holders := make(map[string][]HolderLine)
	for _, h := range ex.Holdings() {
		holders[h.Company] = append(holders[h.Company], HolderLine{
			Operator: h.Operator,
			Quantity: h.Quantity,
			Price:    h.Price,
		})
	}

	names := ex.Companies()
	r := &ExchangeReport{
		Name:      ex.Name(),
		Policy:    ex.Policy().String(),
		Companies: make([]CompanyLine, 0, len(names)),
	}
	for _, name := range names {
		line := CompanyLine{
			Company:  name,
			Listings: listings[name],
			Holders:  holders[name],
		}
		if len(line.Listings) > 0 {
			line.Price = line.Listings[0].Price
			line.Available = line.Listings[0].Quantity
		}
		r.Companies = append(r.Companies, line)
	}
	return r
}

// Company returns the exchanges the named company is listed on.
func (s *ReportService) Company(name string) (*CompanyReport, error) {
	c, err := s.companies.Get(name)
	if err != nil {
		return nil, err
	}
	return &CompanyReport{Name: c.Name, Exchanges: c.Exchanges()}, nil
}

// Operator returns the account statement of the named operator.
func (s *ReportService) Operator(name string) (*OperatorReport, error) {
	op, err := s.operators.Get(name)
	if err != nil {
		return nil, err
	}

	r := &OperatorReport{
		Name:      op.Name,
		CreatedAt: op.CreatedAt,
		Cash:      op.Cash(),
		Exchanges: op.Exchanges(),
		Holdings:  []HoldingLine{},
	}
	for _, exName := range r.Exchanges {
		ex, err := s.exchanges.Get(exName)
		if err != nil {
			return nil, err
		}
		for _, h := range ex.HoldingsOf(op.Name) {
			r.Holdings = append(r.Holdings, HoldingLine{
				Exchange: h.Exchange,
				Company:  h.Company,
				Quantity: h.Quantity,
				Price:    h.Price,
				Value:    h.Value(),
			})
			r.HoldingsValue += h.Value()
		}
	}
	r.TotalCapital = r.Cash + r.HoldingsValue
	return r, nil
}

// Quotes lists every company with its exchanges and every exchange with
// its companies.
func (s *ReportService) Quotes() *QuotesReport {
	r := &QuotesReport{}
	for _, c := range s.companies.List() {
		r.Companies = append(r.Companies, QuoteLine{Name: c.Name, Items: c.Exchanges()})
	}
	for _, ex := range s.exchanges.List() {
		r.Exchanges = append(r.Exchanges, QuoteLine{Name: ex.Name(), Items: ex.Companies()})
	}
	return r
}

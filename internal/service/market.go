package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efreitasn/toyexchange/internal/batch"
	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/engine"
	"github.com/efreitasn/toyexchange/internal/pricing"
	"github.com/efreitasn/toyexchange/internal/store"
)

// Operation codes accepted by Apply.
const (
	OpBuy      = "b"
	OpSell     = "s"
	OpWithdraw = "w"
	OpDeposit  = "d"
)

// ListingRequest represents the input for listing a block of shares.
type ListingRequest struct {
	Company  string
	Exchange string
	Quantity int64
	Price    int64
}

// OperationRequest represents a single account operation. Amount is a
// budget for buys, a share count for sells and a cash amount for
// withdrawals and deposits.
type OperationRequest struct {
	Operator string
	Opcode   string
	Exchange string
	Company  string
	Amount   int64
}

// OperationResult is what Apply did. For buys and sells Executed is the
// share count and Price the pre-trade unit price; for withdrawals and
// deposits Executed is the cash amount and Price is 0.
type OperationResult struct {
	OperationRequest
	Executed int64
	Price    int64
	Cash     int64
}

// MarketService lists shares, configures pricing and dispatches account
// operations onto the exchange ledgers.
type MarketService struct {
	companies *store.CompanyStore
	exchanges *store.ExchangeStore
	operators *store.OperatorStore
	journal   *store.Journal
	logger    *slog.Logger
}

// NewMarketService creates a new MarketService. journal may be nil, in
// which case executed trades are only logged.
func NewMarketService(
	companies *store.CompanyStore,
	exchanges *store.ExchangeStore,
	operators *store.OperatorStore,
	journal *store.Journal,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		companies: companies,
		exchanges: exchanges,
		operators: operators,
		journal:   journal,
		logger:    logger,
	}
}

// List creates the company and exchange on first use and adds a new
// available record for the company on the exchange.
func (s *MarketService) List(req ListingRequest) (engine.PositionView, error) {
	if req.Quantity < 1 {
		return engine.PositionView{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if req.Price < 1 {
		return engine.PositionView{}, &domain.ValidationError{Message: "price must be a positive integer"}
	}

	c, err := s.companies.GetOrCreate(req.Company)
	if err != nil {
		return engine.PositionView{}, err
	}
	ex, err := s.exchanges.GetOrCreate(req.Exchange)
	if err != nil {
		return engine.PositionView{}, err
	}
	pos, err := ex.List(c, req.Price, req.Quantity)
	if err != nil {
		return engine.PositionView{}, err
	}

	s.logger.Info("shares listed",
		slog.String("exchange", ex.Name()),
		slog.String("company", c.Name),
		slog.Int64("quantity", req.Quantity),
		slog.Int64("price", req.Price),
	)
	return pos.View(), nil
}

// SetPolicy parses spec and installs it on the exchange, creating the
// exchange on first use.
func (s *MarketService) SetPolicy(exchange, spec string) (pricing.Policy, error) {
	p, err := pricing.Parse(spec)
	if err != nil {
		return pricing.Policy{}, err
	}
	ex, err := s.exchanges.GetOrCreate(exchange)
	if err != nil {
		return pricing.Policy{}, err
	}
	ex.SetPolicy(p)

	s.logger.Info("pricing policy set",
		slog.String("exchange", ex.Name()),
		slog.String("kind", p.Kind().String()),
		slog.String("policy", p.String()),
	)
	return p, nil
}

// Apply dispatches one operation. The operator must already exist; buys
// and sells also need a known exchange, and the company must be listed
// there.
func (s *MarketService) Apply(req OperationRequest) (OperationResult, error) {
	res, err := s.apply(req)
	if err != nil {
		s.logger.Warn("operation rejected",
			slog.String("operator", req.Operator),
			slog.String("op", req.Opcode),
			slog.String("exchange", req.Exchange),
			slog.String("company", req.Company),
			slog.Int64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		return OperationResult{}, err
	}
	return res, nil
}

func (s *MarketService) apply(req OperationRequest) (OperationResult, error) {
	switch req.Opcode {
	case "":
		return OperationResult{}, fmt.Errorf("opcode: %w", domain.ErrMissingOperand)
	case OpBuy, OpSell, OpWithdraw, OpDeposit:
	default:
		return OperationResult{}, fmt.Errorf("opcode %q: %w", req.Opcode, domain.ErrUnknownOpcode)
	}
	if req.Amount <= 0 {
		return OperationResult{}, &domain.ValidationError{Message: "amount must be a positive integer"}
	}

	op, err := s.operators.Get(req.Operator)
	if err != nil {
		return OperationResult{}, err
	}
	res := OperationResult{OperationRequest: req}

	switch req.Opcode {
	case OpWithdraw:
		if err := op.Withdraw(req.Amount); err != nil {
			return OperationResult{}, err
		}
		res.Executed = req.Amount
	case OpDeposit:
		if err := op.Deposit(req.Amount); err != nil {
			return OperationResult{}, err
		}
		res.Executed = req.Amount
	default:
		fill, err := s.trade(op, req)
		if err != nil {
			return OperationResult{}, err
		}
		res.Executed, res.Price = fill.Executed, fill.Price
	}
	res.Cash = op.Cash()
	return res, nil
}

func (s *MarketService) trade(op *domain.Operator, req OperationRequest) (engine.Fill, error) {
	ex, err := s.exchanges.Get(req.Exchange)
	if err != nil {
		return engine.Fill{}, err
	}

	var (
		fill    engine.Fill
		side    domain.Side
		company *domain.Company
	)
	if req.Opcode == OpBuy {
		side = domain.SideBuy
		pos, ok := ex.Lookup(req.Company)
		if !ok {
			return engine.Fill{}, fmt.Errorf("%s on %s: %w", req.Company, ex.Name(), domain.ErrPositionNotFound)
		}
		company = pos.Company()
		fill, err = engine.Buy(op, ex, req.Amount, pos)
	} else {
		side = domain.SideSell
		company, err = s.companies.Get(req.Company)
		if err != nil {
			return engine.Fill{}, err
		}
		fill, err = engine.Sell(op, ex, company, req.Amount)
	}
	if err != nil {
		return engine.Fill{}, err
	}

	s.logger.Info("trade executed",
		slog.String("operator", op.Name),
		slog.String("side", string(side)),
		slog.String("exchange", ex.Name()),
		slog.String("company", company.Name),
		slog.Int64("requested", req.Amount),
		slog.Int64("executed", fill.Executed),
		slog.Int64("price", fill.Price),
	)
	s.record(&domain.Trade{
		Operator:  op.Name,
		Side:      side,
		Exchange:  ex.Name(),
		Company:   company.Name,
		Requested: req.Amount,
		Executed:  fill.Executed,
		Price:     fill.Price,
		Amount:    fill.Amount(),
	})
	return fill, nil
}

// record journals an executed trade. The ledger has already moved, so a
// journal failure is logged rather than returned.
func (s *MarketService) record(t *domain.Trade) {
	if s.journal == nil || t.Executed == 0 {
		return
	}
	if err := s.journal.Append(t); err != nil {
		s.logger.Error("journal append failed",
			slog.String("operator", t.Operator),
			slog.String("error", err.Error()),
		)
	}
}

// RecentTrades returns up to limit journaled trades, newest first.
func (s *MarketService) RecentTrades(limit int) ([]domain.Trade, error) {
	if limit < 1 {
		return nil, &domain.ValidationError{Message: "limit must be a positive integer"}
	}
	if s.journal == nil {
		return []domain.Trade{}, nil
	}
	return s.journal.Recent(limit)
}

// OperatorTrades returns the journaled trades of a known operator in
// execution order.
func (s *MarketService) OperatorTrades(name string) ([]domain.Trade, error) {
	if _, err := s.operators.Get(name); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return []domain.Trade{}, nil
	}
	return s.journal.ByOperator(name)
}

// ErrBatchAborted wraps the first failure of a batch run.
var ErrBatchAborted = errors.New("batch aborted")

// RunBatch lists, registers and applies the batch in order. The first
// failure stops the run; earlier steps are not undone.
func (s *MarketService) RunBatch(ctx context.Context, b *batch.Batch) error {
	for _, l := range b.Listings {
		_, err := s.List(ListingRequest{
			Company:  l.Company,
			Exchange: l.Exchange,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
		if err != nil {
			return fmt.Errorf("%w: listing %s on %s: %w", ErrBatchAborted, l.Company, l.Exchange, err)
		}
	}
	for _, o := range b.Operators {
		if _, _, err := s.operators.GetOrCreate(o.Name, o.Balance); err != nil {
			return fmt.Errorf("%w: operator %s: %w", ErrBatchAborted, o.Name, err)
		}
	}
	for _, o := range b.Operations {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := s.Apply(OperationRequest{
			Operator: o.Operator,
			Opcode:   o.Opcode,
			Exchange: o.Exchange,
			Company:  o.Company,
			Amount:   o.Amount,
		})
		if err != nil {
			return fmt.Errorf("%w: line %d %q: %w", ErrBatchAborted, o.Line, o.String(), err)
		}
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efreitasn/toyexchange/internal/batch"
	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/logging"
	"github.com/efreitasn/toyexchange/internal/pricing"
	"github.com/efreitasn/toyexchange/internal/store"
)

type testMarket struct {
	market    *MarketService
	operators *OperatorService
	reports   *ReportService
	journal   *store.Journal
}

func newTestMarket(t *testing.T) *testMarket {
	t.Helper()
	logger := logging.Discard()
	journal, err := store.OpenJournal("")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	companies := store.NewCompanyStore()
	exchanges := store.NewExchangeStore(nil)
	operators := store.NewOperatorStore()
	return &testMarket{
		market:    NewMarketService(companies, exchanges, operators, journal, logger),
		operators: NewOperatorService(operators, logger),
		reports:   NewReportService(companies, exchanges, operators),
		journal:   journal,
	}
}

func (m *testMarket) list(t *testing.T, company, exchange string, qty, price int64) {
	t.Helper()
	_, err := m.market.List(ListingRequest{Company: company, Exchange: exchange, Quantity: qty, Price: price})
	if err != nil {
		t.Fatalf("list %s on %s: %v", company, exchange, err)
	}
}

func (m *testMarket) register(t *testing.T, name string, balance int64) {
	t.Helper()
	if _, _, err := m.operators.Register(name, balance); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}

func TestMarketService_ListAccumulatesDuplicates(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 5)
	m.list(t, "Acme", "NYSE", 3, 7)

	r, err := m.reports.Exchange("NYSE")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(r.Companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(r.Companies))
	}
	line := r.Companies[0]
	if len(line.Listings) != 2 {
		t.Fatalf("expected 2 available records, got %d", len(line.Listings))
	}
	// The first listing is the one trades and reports refer to.
	if line.Price != 5 || line.Available != 10 {
		t.Errorf("expected first record 10 @ 5, got %d @ %d", line.Available, line.Price)
	}
}

func TestMarketService_ListValidation(t *testing.T) {
	m := newTestMarket(t)
	tests := []struct {
		name string
		req  ListingRequest
	}{
		{"zero quantity", ListingRequest{Company: "Acme", Exchange: "NYSE", Quantity: 0, Price: 1}},
		{"negative price", ListingRequest{Company: "Acme", Exchange: "NYSE", Quantity: 1, Price: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.market.List(tc.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	var cfgErr *domain.ConfigError
	_, err := m.market.List(ListingRequest{Company: " ", Exchange: "NYSE", Quantity: 1, Price: 1})
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for blank company, got %v", err)
	}
}

func TestMarketService_ApplyBuyAndSell(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 10)
	m.register(t, "Bob", 100)

	res, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 25})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Executed != 2 || res.Price != 10 || res.Cash != 80 {
		t.Fatalf("expected 2 @ 10 leaving 80, got %+v", res)
	}

	res, err = m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpSell, Exchange: "NYSE", Company: "Acme", Amount: 1})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Executed != 1 || res.Cash != 90 {
		t.Fatalf("expected 1 sold leaving 90, got %+v", res)
	}

	trades, err := m.journal.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(trades))
	}
	if trades[0].Side != domain.SideSell || trades[1].Side != domain.SideBuy {
		t.Errorf("expected sell then buy (newest first), got %s, %s", trades[0].Side, trades[1].Side)
	}
	if trades[1].Amount != 20 || trades[1].Requested != 25 {
		t.Errorf("expected buy of budget 25 costing 20, got %+v", trades[1])
	}
}

func TestMarketService_ApplyCash(t *testing.T) {
	m := newTestMarket(t)
	m.register(t, "Bob", 10)

	res, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpDeposit, Amount: 15})
	if err != nil || res.Cash != 25 || res.Executed != 15 {
		t.Fatalf("deposit: got %+v, %v", res, err)
	}
	res, err = m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpWithdraw, Amount: 25})
	if err != nil || res.Cash != 0 {
		t.Fatalf("withdraw: got %+v, %v", res, err)
	}

	_, err = m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpWithdraw, Amount: 1})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	trades, _ := m.journal.Recent(10)
	if len(trades) != 0 {
		t.Errorf("expected cash movements to stay out of the journal, got %d", len(trades))
	}
}

func TestMarketService_ApplyErrors(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 10)
	m.list(t, "Bolt", "LSE", 10, 10)
	m.list(t, "Cara", "NYSE", 20, 10)
	m.register(t, "Bob", 100)

	tests := []struct {
		name   string
		req    OperationRequest
		target error
	}{
		{"blank opcode", OperationRequest{Operator: "Bob", Exchange: "NYSE", Company: "Acme", Amount: 1}, domain.ErrMissingOperand},
		{"unknown opcode", OperationRequest{Operator: "Bob", Opcode: "x", Exchange: "NYSE", Company: "Acme", Amount: 1}, domain.ErrUnknownOpcode},
		{"unknown operator", OperationRequest{Operator: "Zed", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 10}, domain.ErrOperatorNotFound},
		{"unknown exchange", OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "TSX", Company: "Acme", Amount: 10}, domain.ErrExchangeNotFound},
		{"company not listed there", OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Bolt", Amount: 10}, domain.ErrPositionNotFound},
		{"unknown company on sell", OperationRequest{Operator: "Bob", Opcode: OpSell, Exchange: "NYSE", Company: "Nope", Amount: 1}, domain.ErrCompanyNotFound},
		{"sell without holding", OperationRequest{Operator: "Bob", Opcode: OpSell, Exchange: "NYSE", Company: "Acme", Amount: 1}, domain.ErrNoHolding},
		{"cost over balance", OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Cara", Amount: 110}, domain.ErrInsufficientBalance},
		{"budget below price", OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 9}, domain.ErrMissingOperand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.market.Apply(tc.req)
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}

	for _, amount := range []int64{0, -5} {
		_, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpDeposit, Amount: amount})
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("amount %d: expected ValidationError, got %v", amount, err)
		}
	}

	op, _ := m.operators.Get("Bob")
	if op.Cash() != 100 {
		t.Errorf("expected rejected operations to leave cash at 100, got %d", op.Cash())
	}
}

func TestMarketService_BuyBudgetAboveBalance(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 5)
	m.register(t, "Bob", 10)

	res, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Executed != 2 || res.Price != 5 || res.Cash != 0 {
		t.Errorf("got %+v, want 2 shares at 5 and an empty balance", res)
	}
}

func TestMarketService_SetPolicy(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 10)
	m.register(t, "Bob", 1000)

	p, err := m.market.SetPolicy("NYSE", "threshold:3")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Kind() != pricing.KindThreshold {
		t.Fatalf("expected threshold policy, got %s", p.Kind())
	}

	// 4 shares > threshold 3 doubles the price.
	if _, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 40}); err != nil {
		t.Fatal(err)
	}
	r, _ := m.reports.Exchange("NYSE")
	if r.Companies[0].Price != 20 {
		t.Errorf("expected price 20, got %d", r.Companies[0].Price)
	}
	if r.Policy != "threshold:3" {
		t.Errorf("expected policy threshold:3, got %s", r.Policy)
	}

	var cfgErr *domain.ConfigError
	if _, err := m.market.SetPolicy("NYSE", "threshold:-1"); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	r, _ = m.reports.Exchange("NYSE")
	if got := r.Policy; got != "threshold:3" {
		t.Errorf("expected failed update to keep the old policy, got %s", got)
	}

	// Setting a policy on an unseen exchange creates it.
	if _, err := m.market.SetPolicy("LSE", "letter:a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.reports.Exchange("LSE"); err != nil {
		t.Errorf("expected LSE to exist, got %v", err)
	}
}

const scenario = `Acme NYSE 10 5
Bolt NYSE 4 2
Acme LSE 3 1
--
Bob 100
Amy 10
--
Bob b NYSE Acme 23
Amy b NYSE Bolt 5
Bob s NYSE Acme 1
`

func TestMarketService_RunBatch(t *testing.T) {
	m := newTestMarket(t)
	b, err := batch.Parse(strings.NewReader(scenario))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.market.RunBatch(context.Background(), b); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	r, err := m.reports.Exchange("NYSE")
	if err != nil {
		t.Fatal(err)
	}
	acme, bolt := r.Companies[0], r.Companies[1]
	if acme.Company != "Acme" || acme.Available != 7 {
		t.Errorf("expected Acme with 7 available, got %+v", acme)
	}
	if len(acme.Holders) != 1 || acme.Holders[0] != (HolderLine{Operator: "Bob", Quantity: 3, Price: 5}) {
		t.Errorf("unexpected Acme holders %+v", acme.Holders)
	}
	if bolt.Available != 2 || len(bolt.Holders) != 1 || bolt.Holders[0].Operator != "Amy" {
		t.Errorf("unexpected Bolt line %+v", bolt)
	}

	bob, _ := m.operators.Get("Bob")
	amy, _ := m.operators.Get("Amy")
	if bob.Cash() != 85 || amy.Cash() != 6 {
		t.Errorf("expected cash Bob=85 Amy=6, got Bob=%d Amy=%d", bob.Cash(), amy.Cash())
	}
}

func TestMarketService_RunBatchStopsAtFirstError(t *testing.T) {
	m := newTestMarket(t)
	input := `Acme NYSE 10 5
--
Bob 100
--
Bob b NYSE Acme 10
Bob x NYSE Acme 1
Bob d NYSE Acme 50
`
	b, err := batch.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	err = m.market.RunBatch(context.Background(), b)
	if !errors.Is(err, ErrBatchAborted) || !errors.Is(err, domain.ErrUnknownOpcode) {
		t.Fatalf("expected aborted batch on unknown opcode, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 6") {
		t.Errorf("expected error to name line 6, got %v", err)
	}

	bob, _ := m.operators.Get("Bob")
	if bob.Cash() != 90 {
		t.Errorf("expected the first buy to stand and the deposit to be skipped, got cash %d", bob.Cash())
	}
}

func TestMarketService_RunBatchCancelled(t *testing.T) {
	m := newTestMarket(t)
	b, _ := batch.Parse(strings.NewReader(scenario))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.market.RunBatch(ctx, b); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMarketService_RecentTrades(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 1)
	m.register(t, "Bob", 10)
	for i := 0; i < 3; i++ {
		if _, err := m.market.Apply(OperationRequest{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 2}); err != nil {
			t.Fatal(err)
		}
	}

	trades, err := m.market.RecentTrades(2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}

	var ve *domain.ValidationError
	if _, err := m.market.RecentTrades(0); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	noJournal := NewMarketService(store.NewCompanyStore(), store.NewExchangeStore(nil), store.NewOperatorStore(), nil, logging.Discard())
	trades, err = noJournal.RecentTrades(5)
	if err != nil || trades == nil || len(trades) != 0 {
		t.Fatalf("expected empty trades without a journal, got %v, %v", trades, err)
	}
}

func TestMarketService_OperatorTrades(t *testing.T) {
	m := newTestMarket(t)
	m.list(t, "Acme", "NYSE", 10, 1)
	m.register(t, "Bob", 10)
	m.register(t, "Amy", 10)
	for _, req := range []OperationRequest{
		{Operator: "Bob", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 3},
		{Operator: "Amy", Opcode: OpBuy, Exchange: "NYSE", Company: "Acme", Amount: 1},
		{Operator: "Bob", Opcode: OpSell, Exchange: "NYSE", Company: "Acme", Amount: 2},
	} {
		if _, err := m.market.Apply(req); err != nil {
			t.Fatalf("%+v: %v", req, err)
		}
	}

	trades, err := m.market.OperatorTrades("Bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(trades) != 2 || trades[0].Side != domain.SideBuy || trades[1].Side != domain.SideSell {
		t.Fatalf("unexpected trades %+v", trades)
	}
	if trades[0].Company != "Acme" || trades[0].Executed != 3 {
		t.Errorf("unexpected buy %+v", trades[0])
	}

	if _, err := m.market.OperatorTrades("Cat"); !errors.Is(err, domain.ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/efreitasn/toyexchange/internal/batch"
	"github.com/efreitasn/toyexchange/internal/pricing"
	"github.com/efreitasn/toyexchange/internal/service"
	"github.com/efreitasn/toyexchange/internal/store"
)

// app wires the registries into the services every mode uses.
type app struct {
	market    *service.MarketService
	operators *service.OperatorService
	reports   *service.ReportService
}

func newApp(policies map[string]pricing.Policy, journal *store.Journal, logger *slog.Logger) *app {
	companies := store.NewCompanyStore()
	exchanges := store.NewExchangeStore(policies)
	operators := store.NewOperatorStore()
	return &app{
		market:    service.NewMarketService(companies, exchanges, operators, journal, logger),
		operators: service.NewOperatorService(operators, logger),
		reports:   service.NewReportService(companies, exchanges, operators),
	}
}

// runBatch executes a three-section batch and prints, for every exchange,
// its companies with the shares still available and, under each company,
// the operators holding it:
//
//	NYSE
//	- Acme 7
//	= Bob 3
func runBatch(ctx context.Context, in io.Reader, out io.Writer, a *app) error {
	b, err := batch.Parse(in)
	if err != nil {
		return err
	}
	if err := a.market.RunBatch(ctx, b); err != nil {
		return err
	}

	for _, ex := range a.reports.Exchanges() {
		fmt.Fprintln(out, ex.Name)
		for _, line := range ex.Companies {
			fmt.Fprintf(out, "- %s %d\n", line.Company, line.Available)
			for _, h := range line.Holders {
				fmt.Fprintf(out, "= %s %d\n", h.Operator, h.Quantity)
			}
		}
	}
	return nil
}

// runQuotes lists every line read from in and prints each company with the
// exchanges it is listed on, then each exchange with its companies.
func runQuotes(in io.Reader, out io.Writer, a *app) error {
	listings, err := batch.ParseListings(in)
	if err != nil {
		return err
	}
	for _, l := range listings {
		_, err := a.market.List(service.ListingRequest{
			Company:  l.Company,
			Exchange: l.Exchange,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
		if err != nil {
			return fmt.Errorf("listing %s on %s: %w", l.Company, l.Exchange, err)
		}
	}

	q := a.reports.Quotes()
	for _, group := range [][]service.QuoteLine{q.Companies, q.Exchanges} {
		for _, line := range group {
			fmt.Fprintln(out, line.Name)
			for _, item := range line.Items {
				fmt.Fprintf(out, "- %s\n", item)
			}
		}
	}
	return nil
}

// runPositions lists "company quantity price" lines on exchange and prints
// every available record as "company, price, quantity", by company name.
func runPositions(in io.Reader, out io.Writer, a *app, exchange string) error {
	listings, err := batch.ParseQuotes(in, exchange)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return nil
	}
	for _, l := range listings {
		_, err := a.market.List(service.ListingRequest{
			Company:  l.Company,
			Exchange: l.Exchange,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
		if err != nil {
			return fmt.Errorf("listing %s on %s: %w", l.Company, l.Exchange, err)
		}
	}

	rep, err := a.reports.Exchange(exchange)
	if err != nil {
		return err
	}
	for _, line := range rep.Companies {
		for _, p := range line.Listings {
			fmt.Fprintf(out, "%s, %d, %d\n", p.Company, p.Price, p.Quantity)
		}
	}
	return nil
}

// runThreshold runs a session on one exchange under a threshold policy.
// args are the exchange, the threshold, the operator and its opening
// balance. Every available record is then printed as "company, price".
func runThreshold(ctx context.Context, in io.Reader, out io.Writer, a *app, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("threshold mode takes <exchange> <threshold> <operator> <budget>, got %d arguments", len(args))
	}
	exchange, operator := args[0], args[2]
	budget, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("budget %q is not an integer", args[3])
	}
	if _, err := a.market.SetPolicy(exchange, "threshold:"+args[1]); err != nil {
		return err
	}

	session, err := batch.ParseSession(in, exchange, batch.OperatorLine{Name: operator, Balance: budget})
	if err != nil {
		return err
	}
	if err := a.market.RunBatch(ctx, session); err != nil {
		return err
	}

	rep, err := a.reports.Exchange(exchange)
	if err != nil {
		return err
	}
	for _, line := range rep.Companies {
		for _, p := range line.Listings {
			fmt.Fprintf(out, "%s, %d\n", p.Company, p.Price)
		}
	}
	return nil
}

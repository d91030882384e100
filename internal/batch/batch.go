// Package batch reads the plain-text scenario format: a block of listings,
// a block of operators and a block of operations, separated by lines
// holding only "--". Names never contain spaces.
//
//	Acme NYSE 100 10
//	--
//	Bob 1000
//	--
//	Bob b NYSE Acme 120
//	Bob s NYSE Acme 4
//
// Sessions are the single-exchange, single-operator variant: quotes
// without the exchange column, then orders without the operator and
// exchange columns.
//
//	Acme 100 10
//	--
//	b Acme 120
//	s Acme 4
package batch

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const separator = "--"

// Listing is one "company exchange quantity price" line.
type Listing struct {
	Company  string
	Exchange string
	Quantity int64
	Price    int64
}

// OperatorLine is one "name balance" line.
type OperatorLine struct {
	Name    string
	Balance int64
}

// Operation is one "operator opcode exchange company amount" line. The
// meaning of Amount depends on the opcode: a budget for b, a share count
// for s, a cash amount for w and d.
type Operation struct {
	Line     int
	Operator string
	Opcode   string
	Exchange string
	Company  string
	Amount   int64
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s %s %s %d", o.Operator, o.Opcode, o.Exchange, o.Company, o.Amount)
}

// Batch is a parsed scenario.
type Batch struct {
	Listings   []Listing
	Operators  []OperatorLine
	Operations []Operation
}

// ParseError reports a malformed line. Line is 1-based.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads a full three-section batch. Missing trailing sections are
// treated as empty; a fourth section is an error. Blank lines are skipped.
func Parse(r io.Reader) (*Batch, error) {
	b := &Batch{}
	section := 0
	err := scan(r, func(n int, fields []string) error {
		if len(fields) == 1 && fields[0] == separator {
			section++
			if section > 2 {
				return &ParseError{Line: n, Msg: "too many sections"}
			}
			return nil
		}
		switch section {
		case 0:
			l, err := parseListing(n, fields)
			if err != nil {
				return err
			}
			b.Listings = append(b.Listings, l)
		case 1:
			o, err := parseOperator(n, fields)
			if err != nil {
				return err
			}
			b.Operators = append(b.Operators, o)
		default:
			op, err := parseOperation(n, fields)
			if err != nil {
				return err
			}
			b.Operations = append(b.Operations, op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ParseListings reads a listings-only input, one listing per line.
func ParseListings(r io.Reader) ([]Listing, error) {
	var out []Listing
	err := scan(r, func(n int, fields []string) error {
		l, err := parseListing(n, fields)
		if err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseQuotes reads "company quantity price" lines to be listed on
// exchange.
func ParseQuotes(r io.Reader, exchange string) ([]Listing, error) {
	var out []Listing
	err := scan(r, func(n int, fields []string) error {
		l, err := parseQuote(n, exchange, fields)
		if err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseSession reads a two-section session: quotes listed on exchange,
// then "opcode company amount" orders placed by op on that exchange. The
// result registers op and runs like any other batch.
func ParseSession(r io.Reader, exchange string, op OperatorLine) (*Batch, error) {
	b := &Batch{Operators: []OperatorLine{op}}
	section := 0
	err := scan(r, func(n int, fields []string) error {
		if len(fields) == 1 && fields[0] == separator {
			section++
			if section > 1 {
				return &ParseError{Line: n, Msg: "too many sections"}
			}
			return nil
		}
		if section == 0 {
			l, err := parseQuote(n, exchange, fields)
			if err != nil {
				return err
			}
			b.Listings = append(b.Listings, l)
			return nil
		}
		o, err := parseOrder(n, exchange, op.Name, fields)
		if err != nil {
			return err
		}
		b.Operations = append(b.Operations, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scan(r io.Reader, fn func(n int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if err := fn(n, fields); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	return nil
}

func parseListing(n int, f []string) (Listing, error) {
	if len(f) != 4 {
		return Listing{}, tokenCount(n, "listing", 4, len(f))
	}
	qty, err := parseInt(n, "quantity", f[2])
	if err != nil {
		return Listing{}, err
	}
	price, err := parseInt(n, "price", f[3])
	if err != nil {
		return Listing{}, err
	}
	return Listing{Company: f[0], Exchange: f[1], Quantity: qty, Price: price}, nil
}

func parseQuote(n int, exchange string, f []string) (Listing, error) {
	if len(f) != 3 {
		return Listing{}, tokenCount(n, "quote", 3, len(f))
	}
	qty, err := parseInt(n, "quantity", f[1])
	if err != nil {
		return Listing{}, err
	}
	price, err := parseInt(n, "price", f[2])
	if err != nil {
		return Listing{}, err
	}
	return Listing{Company: f[0], Exchange: exchange, Quantity: qty, Price: price}, nil
}

func parseOperator(n int, f []string) (OperatorLine, error) {
	if len(f) != 2 {
		return OperatorLine{}, tokenCount(n, "operator", 2, len(f))
	}
	bal, err := parseInt(n, "balance", f[1])
	if err != nil {
		return OperatorLine{}, err
	}
	return OperatorLine{Name: f[0], Balance: bal}, nil
}

func parseOperation(n int, f []string) (Operation, error) {
	if len(f) != 5 {
		return Operation{}, tokenCount(n, "operation", 5, len(f))
	}
	amount, err := parseInt(n, "amount", f[4])
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		Line:     n,
		Operator: f[0],
		Opcode:   f[1],
		Exchange: f[2],
		Company:  f[3],
		Amount:   amount,
	}, nil
}

func parseOrder(n int, exchange, operator string, f []string) (Operation, error) {
	if len(f) != 3 {
		return Operation{}, tokenCount(n, "order", 3, len(f))
	}
	amount, err := parseInt(n, "amount", f[2])
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		Line:     n,
		Operator: operator,
		Opcode:   f[0],
		Exchange: exchange,
		Company:  f[1],
		Amount:   amount,
	}, nil
}

func tokenCount(n int, what string, want, got int) *ParseError {
	return &ParseError{Line: n, Msg: fmt.Sprintf("%s needs %d fields, got %d", what, want, got)}
}

func parseInt(n int, field, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Line: n, Msg: fmt.Sprintf("%s %q is not an integer", field, s)}
	}
	return v, nil
}

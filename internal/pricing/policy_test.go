package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/efreitasn/toyexchange/internal/domain"
)

type subject struct {
	price    int64
	company  string
	exchange string
}

func (s subject) UnitPrice() int64     { return s.price }
func (s subject) CompanyName() string  { return s.company }
func (s subject) ExchangeName() string { return s.exchange }

func mustPolicy(t *testing.T) func(Policy, error) Policy {
	return func(p Policy, err error) Policy {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return p
	}
}

func TestNone_NeverChangesPrice(t *testing.T) {
	s := subject{price: 7, company: "Acme", exchange: "Ibex"}
	var p Policy

	if got, _ := p.OnBuy(s, 100); got != 7 {
		t.Errorf("OnBuy = %d, want 7", got)
	}
	if got, _ := p.OnSell(s, 100); got != 7 {
		t.Errorf("OnSell = %d, want 7", got)
	}
}

func TestConstant_SingleValue(t *testing.T) {
	tests := []struct {
		name     string
		delta    int64
		price    int64
		wantBuy  int64
		wantSell int64
	}{
		{"positive raises on buy only", 3, 10, 13, 10},
		{"negative lowers on sell only", -4, 10, 10, 6},
		{"negative floors at one", -20, 10, 10, 1},
		{"zero has no effect", 0, 10, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Constant(tt.delta)
			s := subject{price: tt.price, company: "Acme", exchange: "NYSE"}
			if got, _ := p.OnBuy(s, 1); got != tt.wantBuy {
				t.Errorf("OnBuy = %d, want %d", got, tt.wantBuy)
			}
			if got, _ := p.OnSell(s, 1); got != tt.wantSell {
				t.Errorf("OnSell = %d, want %d", got, tt.wantSell)
			}
		})
	}
}

func TestConstantPair_Scenario(t *testing.T) {
	p := mustPolicy(t)(ConstantPair(1, -2))

	price, err := p.OnBuy(subject{price: 10}, 1)
	if err != nil || price != 11 {
		t.Fatalf("OnBuy = %d, %v; want 11", price, err)
	}
	price, err = p.OnSell(subject{price: price}, 1)
	if err != nil || price != 9 {
		t.Fatalf("OnSell = %d, %v; want 9", price, err)
	}
}

func TestConstantPair_InvalidSigns(t *testing.T) {
	tests := []struct {
		name     string
		inc, dec int64
	}{
		{"negative increment", -1, 0},
		{"positive decrement", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConstantPair(tt.inc, tt.dec)
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %v", err)
			}
		})
	}
}

func TestThreshold(t *testing.T) {
	p := mustPolicy(t)(Threshold(3))
	s := subject{price: 4}

	if got, _ := p.OnBuy(s, 5); got != 8 {
		t.Errorf("OnBuy above threshold = %d, want 8", got)
	}
	if got, _ := p.OnBuy(s, 3); got != 4 {
		t.Errorf("OnBuy at threshold = %d, want 4", got)
	}
	if got, _ := p.OnSell(s, 4); got != 2 {
		t.Errorf("OnSell above threshold = %d, want 2", got)
	}
	if got, _ := p.OnSell(subject{price: 1}, 4); got != 1 {
		t.Errorf("OnSell floor = %d, want 1", got)
	}
	if got, _ := p.OnSell(s, 2); got != 4 {
		t.Errorf("OnSell below threshold = %d, want 4", got)
	}
}

func TestThreshold_ZeroAlwaysFires(t *testing.T) {
	p := mustPolicy(t)(Threshold(0))
	if got, _ := p.OnBuy(subject{price: 3}, 1); got != 6 {
		t.Errorf("OnBuy = %d, want 6", got)
	}
}

func TestOnBuy_SaturatesAtMaxInt64(t *testing.T) {
	must := mustPolicy(t)
	tests := []struct {
		name  string
		p     Policy
		price int64
	}{
		{"threshold doubling", must(Threshold(0)), math.MaxInt64/2 + 1},
		{"letter doubling", must(InitialLetter("a")), math.MaxInt64 - 3},
		{"constant increment", Constant(10), math.MaxInt64 - 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subject{price: tt.price, company: "Acme", exchange: "NYSE"}
			got, err := tt.p.OnBuy(s, 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != math.MaxInt64 {
				t.Errorf("OnBuy = %d, want %d", got, int64(math.MaxInt64))
			}
		})
	}
}

func TestThreshold_Negative(t *testing.T) {
	if _, err := Threshold(-1); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestInitialLetter(t *testing.T) {
	p := mustPolicy(t)(InitialLetter("Z"))

	tests := []struct {
		name     string
		company  string
		exchange string
		wantBuy  int64
		wantSell int64
	}{
		{"exchange starts with vowel", "Bolt", "Ibex", 20, 5},
		{"company starts with vowel", "Acme", "NYSE", 20, 5},
		{"company matches letter", "Zeta", "NYSE", 20, 5},
		{"exchange matches letter case-insensitively", "Bolt", "zurich", 20, 5},
		{"ineligible", "Bolt", "NYSE", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subject{price: 10, company: tt.company, exchange: tt.exchange}
			if got, _ := p.OnBuy(s, 1); got != tt.wantBuy {
				t.Errorf("OnBuy = %d, want %d", got, tt.wantBuy)
			}
			if got, _ := p.OnSell(s, 1); got != tt.wantSell {
				t.Errorf("OnSell = %d, want %d", got, tt.wantSell)
			}
		})
	}
}

func TestInitialLetter_Invalid(t *testing.T) {
	for _, in := range []string{"", "ab", " "} {
		if _, err := InitialLetter(in); err == nil {
			t.Errorf("InitialLetter(%q) expected error", in)
		}
	}
}

func TestPolicy_RejectsBadOperands(t *testing.T) {
	p := Constant(1)

	if _, err := p.OnBuy(nil, 1); !errors.Is(err, domain.ErrMissingOperand) {
		t.Errorf("OnBuy(nil) = %v, want ErrMissingOperand", err)
	}
	if _, err := p.OnSell(subject{price: 1}, -1); !errors.Is(err, domain.ErrNegativeQuantity) {
		t.Errorf("OnSell(-1) = %v, want ErrNegativeQuantity", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec     string
		wantKind Kind
		wantStr  string
		wantErr  bool
	}{
		{"none", KindNone, "none", false},
		{"", KindNone, "none", false},
		{"constant:5", KindConstant, "constant:5,0", false},
		{"constant:-2", KindConstant, "constant:0,-2", false},
		{"constant:1,-2", KindConstant, "constant:1,-2", false},
		{"threshold:3", KindThreshold, "threshold:3", false},
		{"letter:Q", KindInitialLetter, "letter:q", false},
		{"constant:-1,0", KindNone, "", true},
		{"threshold:x", KindNone, "", true},
		{"letter:ab", KindNone, "", true},
		{"random:1", KindNone, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			p, err := Parse(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.spec, err)
			}
			if p.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.wantKind)
			}
			if p.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", p.String(), tt.wantStr)
			}
		})
	}
}

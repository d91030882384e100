// Package pricing implements the per-exchange price adjustment policies
// applied after every executed trade.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/efreitasn/toyexchange/internal/domain"
)

// Kind selects the price adjustment algorithm.
type Kind int

const (
	KindNone Kind = iota
	KindConstant
	KindThreshold
	KindInitialLetter
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConstant:
		return "constant"
	case KindThreshold:
		return "threshold"
	case KindInitialLetter:
		return "letter"
	}
	return "unknown"
}

// Subject is the position a policy reprices.
type Subject interface {
	UnitPrice() int64
	CompanyName() string
	ExchangeName() string
}

// Policy is a tagged variant over the supported algorithms. The zero value
// is KindNone and never changes prices.
type Policy struct {
	kind      Kind
	increment int64 // >= 0
	decrement int64 // <= 0
	threshold int64
	letter    rune
}

const vowels = "aeiou"

// None returns the policy that leaves prices untouched.
func None() Policy {
	return Policy{}
}

// Constant builds a constant delta policy from a single signed value:
// positive raises the price on buys, negative lowers it on sells.
func Constant(delta int64) Policy {
	p := Policy{kind: KindConstant}
	if delta > 0 {
		p.increment = delta
	} else {
		p.decrement = delta
	}
	return p
}

// ConstantPair builds a constant delta policy with an explicit buy-side
// increment and sell-side decrement.
func ConstantPair(increment, decrement int64) (Policy, error) {
	if increment < 0 {
		return Policy{}, domain.NewConfigError("increment", "must be >= 0, got %d", increment)
	}
	if decrement > 0 {
		return Policy{}, domain.NewConfigError("decrement", "must be <= 0, got %d", decrement)
	}
	return Policy{kind: KindConstant, increment: increment, decrement: decrement}, nil
}

// Threshold doubles the price on buys and halves it on sells whenever the
// traded quantity exceeds t. A threshold of 0 fires on every trade.
func Threshold(t int64) (Policy, error) {
	if t < 0 {
		return Policy{}, domain.NewConfigError("threshold", "must be >= 0, got %d", t)
	}
	return Policy{kind: KindThreshold, threshold: t}, nil
}

// InitialLetter doubles on buys and halves on sells for positions whose
// exchange or company name starts with letter or with a vowel.
func InitialLetter(letter string) (Policy, error) {
	if utf8.RuneCountInString(letter) != 1 {
		return Policy{}, domain.NewConfigError("letter", "exactly one letter is allowed, got %q", letter)
	}
	r, _ := utf8.DecodeRuneInString(letter)
	if unicode.IsSpace(r) {
		return Policy{}, domain.NewConfigError("letter", "letter must not be blank")
	}
	return Policy{kind: KindInitialLetter, letter: unicode.ToLower(r)}, nil
}

// Kind reports the algorithm.
func (p Policy) Kind() Kind {
	return p.kind
}

// OnBuy returns the new unit price after traded shares were bought. The
// result saturates at math.MaxInt64.
func (p Policy) OnBuy(s Subject, traded int64) (int64, error) {
	if err := checkOperands(s, traded); err != nil {
		return 0, err
	}
	price := s.UnitPrice()
	switch p.kind {
	case KindConstant:
		return raise(price, p.increment), nil
	case KindThreshold:
		if traded > p.threshold {
			return raise(price, price), nil
		}
	case KindInitialLetter:
		if p.eligible(s) {
			return raise(price, price), nil
		}
	}
	return price, nil
}

// OnSell returns the new unit price after traded shares were sold. The
// result is never below 1.
func (p Policy) OnSell(s Subject, traded int64) (int64, error) {
	if err := checkOperands(s, traded); err != nil {
		return 0, err
	}
	price := s.UnitPrice()
	switch p.kind {
	case KindConstant:
		return max(price+p.decrement, 1), nil
	case KindThreshold:
		if traded > p.threshold {
			return max(price/2, 1), nil
		}
	case KindInitialLetter:
		if p.eligible(s) {
			return max(price/2, 1), nil
		}
	}
	return price, nil
}

func raise(price, by int64) int64 {
	if v, ok := domain.AddUnits(price, by); ok {
		return v
	}
	return math.MaxInt64
}

func (p Policy) eligible(s Subject) bool {
	for _, name := range []string{s.ExchangeName(), s.CompanyName()} {
		r, _ := utf8.DecodeRuneInString(name)
		r = unicode.ToLower(r)
		if r == p.letter || strings.ContainsRune(vowels, r) {
			return true
		}
	}
	return false
}

func checkOperands(s Subject, traded int64) error {
	if s == nil {
		return fmt.Errorf("reprice: %w", domain.ErrMissingOperand)
	}
	if traded < 0 {
		return fmt.Errorf("reprice with quantity %d: %w", traded, domain.ErrNegativeQuantity)
	}
	return nil
}

// String renders the policy in the form accepted by Parse.
func (p Policy) String() string {
	switch p.kind {
	case KindConstant:
		return fmt.Sprintf("constant:%d,%d", p.increment, p.decrement)
	case KindThreshold:
		return fmt.Sprintf("threshold:%d", p.threshold)
	case KindInitialLetter:
		return "letter:" + string(p.letter)
	}
	return "none"
}

// Parse reads a policy from its textual form:
//
//	none
//	constant:<delta>
//	constant:<increment>,<decrement>
//	threshold:<t>
//	letter:<c>
func Parse(spec string) (Policy, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	switch strings.ToLower(kind) {
	case "", "none":
		return None(), nil
	case "constant":
		inc, dec, pair := strings.Cut(arg, ",")
		if !pair {
			delta, err := parseInt("delta", inc)
			if err != nil {
				return Policy{}, err
			}
			return Constant(delta), nil
		}
		i, err := parseInt("increment", inc)
		if err != nil {
			return Policy{}, err
		}
		d, err := parseInt("decrement", dec)
		if err != nil {
			return Policy{}, err
		}
		return ConstantPair(i, d)
	case "threshold":
		t, err := parseInt("threshold", arg)
		if err != nil {
			return Policy{}, err
		}
		return Threshold(t)
	case "letter":
		return InitialLetter(arg)
	}
	return Policy{}, domain.NewConfigError("policy", "unknown policy %q", spec)
}

func parseInt(field, s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &domain.ConfigError{Field: field, Err: err}
	}
	return v, nil
}

package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/engine"
	"github.com/efreitasn/toyexchange/internal/pricing"
)

// CompanyStore is a thread-safe registry of companies keyed by name.
type CompanyStore struct {
	mu        sync.RWMutex
	companies map[string]*domain.Company
}

// NewCompanyStore creates an empty CompanyStore.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{companies: make(map[string]*domain.Company)}
}

// GetOrCreate returns the company with the given name, creating it on
// first use. Blank names are rejected with a *domain.ConfigError.
func (s *CompanyStore) GetOrCreate(name string) (*domain.Company, error) {
	s.mu.RLock()
	c, ok := s.companies[name]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock.
	if c, ok = s.companies[name]; ok {
		return c, nil
	}
	c, err := domain.NewCompany(name)
	if err != nil {
		return nil, err
	}
	s.companies[name] = c
	return c, nil
}

// Get returns domain.ErrCompanyNotFound for unknown names.
func (s *CompanyStore) Get(name string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[name]
	if !ok {
		return nil, fmt.Errorf("company %q: %w", name, domain.ErrCompanyNotFound)
	}
	return c, nil
}

// List returns every company sorted by name.
func (s *CompanyStore) List() []*domain.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.companies)
}

// ExchangeStore is a thread-safe registry of exchanges keyed by name.
// Exchanges created through it start with the policy configured for their
// name, if any.
type ExchangeStore struct {
	mu        sync.RWMutex
	exchanges map[string]*engine.Exchange
	defaults  map[string]pricing.Policy
}

// NewExchangeStore creates an empty ExchangeStore. defaults may be nil.
func NewExchangeStore(defaults map[string]pricing.Policy) *ExchangeStore {
	return &ExchangeStore{
		exchanges: make(map[string]*engine.Exchange),
		defaults:  defaults,
	}
}

// GetOrCreate returns the exchange with the given name, creating it on
// first use.
func (s *ExchangeStore) GetOrCreate(name string) (*engine.Exchange, error) {
	s.mu.RLock()
	ex, ok := s.exchanges[name]
	s.mu.RUnlock()
	if ok {
		return ex, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ex, ok = s.exchanges[name]; ok {
		return ex, nil
	}
	ex, err := engine.NewExchange(name)
	if err != nil {
		return nil, err
	}
	if p, ok := s.defaults[name]; ok {
		ex.SetPolicy(p)
	}
	s.exchanges[name] = ex
	return ex, nil
}

// Get returns domain.ErrExchangeNotFound for unknown names.
func (s *ExchangeStore) Get(name string) (*engine.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exchanges[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q: %w", name, domain.ErrExchangeNotFound)
	}
	return ex, nil
}

// List returns every exchange sorted by name.
func (s *ExchangeStore) List() []*engine.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.exchanges)
}

// OperatorStore is a thread-safe registry of operators keyed by name.
type OperatorStore struct {
	mu        sync.RWMutex
	operators map[string]*domain.Operator
}

// NewOperatorStore creates an empty OperatorStore.
func NewOperatorStore() *OperatorStore {
	return &OperatorStore{operators: make(map[string]*domain.Operator)}
}

// GetOrCreate returns the operator with the given name, creating it with
// the opening balance on first use. The balance of an existing operator is
// left alone. created reports whether a new operator was made.
func (s *OperatorStore) GetOrCreate(name string, balance int64) (op *domain.Operator, created bool, err error) {
	s.mu.RLock()
	op, ok := s.operators[name]
	s.mu.RUnlock()
	if ok {
		return op, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok = s.operators[name]; ok {
		return op, false, nil
	}
	op, err = domain.NewOperator(name, balance)
	if err != nil {
		return nil, false, err
	}
	s.operators[name] = op
	return op, true, nil
}

// Get returns domain.ErrOperatorNotFound for unknown names.
func (s *OperatorStore) Get(name string) (*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[name]
	if !ok {
		return nil, fmt.Errorf("operator %q: %w", name, domain.ErrOperatorNotFound)
	}
	return op, nil
}

// List returns every operator sorted by name.
func (s *OperatorStore) List() []*domain.Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.operators)
}

func sortedValues[V any](m map[string]V) []V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

package domain

import (
	"slices"
	"sync"
)

// Company is a listed issuer. Companies are identified by name and are
// never deleted once created.
type Company struct {
	Name string

	mu        sync.RWMutex
	exchanges map[string]struct{}
}

// NewCompany validates the name and returns a company listed nowhere yet.
func NewCompany(name string) (*Company, error) {
	if err := ValidateName("company", name); err != nil {
		return nil, err
	}
	return &Company{
		Name:      name,
		exchanges: make(map[string]struct{}),
	}, nil
}

// AddExchange records that the company is listed on the named exchange.
// Adding the same exchange twice is a no-op.
func (c *Company) AddExchange(exchange string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[exchange] = struct{}{}
}

// Exchanges returns the names of the exchanges the company is listed on,
// sorted by name.
func (c *Company) Exchanges() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.exchanges)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

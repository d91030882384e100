package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/pricing"
)

// policyFile is the on-disk layout of POLICY_FILE:
//
//	exchanges:
//	  NYSE: threshold:3
//	  Ibex: letter:i
type policyFile struct {
	Exchanges map[string]string `yaml:"exchanges"`
}

// LoadPolicies reads the per-exchange starting policies from a YAML file.
// An empty path yields no policies.
func LoadPolicies(path string) (map[string]pricing.Policy, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return parsePolicies(data)
}

func parsePolicies(data []byte) (map[string]pricing.Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	out := make(map[string]pricing.Policy, len(f.Exchanges))
	for exchange, spec := range f.Exchanges {
		if err := domain.ValidateName("exchanges", exchange); err != nil {
			return nil, err
		}
		p, err := pricing.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("policy for %s: %w", exchange, err)
		}
		out[exchange] = p
	}
	return out, nil
}

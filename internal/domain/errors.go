package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	// Usage errors.
	ErrMissingOperand   = errors.New("missing_operand")
	ErrNegativeQuantity = errors.New("negative_quantity")
	ErrUnknownOpcode    = errors.New("unknown_opcode")

	// Lookup errors.
	ErrCompanyNotFound  = errors.New("company_not_found")
	ErrExchangeNotFound = errors.New("exchange_not_found")
	ErrOperatorNotFound = errors.New("operator_not_found")
	ErrPositionNotFound = errors.New("position_not_found")

	// State errors.
	ErrNoHolding           = errors.New("no_holding")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrAmountOverflow      = errors.New("amount_overflow")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError reports an invalid construction parameter for a policy,
// company, exchange or operator.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError with a formatted cause.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// InvariantViolation is the panic value used when a balance, quantity or
// price would leave its valid range. It signals a defect upstream and is
// never returned as an ordinary error.
type InvariantViolation struct {
	What   string
	Detail string
}

func (v InvariantViolation) Error() string {
	return "invariant violated: " + v.What + ": " + v.Detail
}

// ValidateName rejects empty and blank identity names.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewConfigError(field, "name must not be blank")
	}
	return nil
}

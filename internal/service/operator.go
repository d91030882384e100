package service

import (
	"log/slog"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/store"
)

// OperatorService handles operator registration and lookup.
type OperatorService struct {
	store  *store.OperatorStore
	logger *slog.Logger
}

// NewOperatorService creates a new OperatorService.
func NewOperatorService(store *store.OperatorStore, logger *slog.Logger) *OperatorService {
	return &OperatorService{store: store, logger: logger}
}

// Register creates the operator with an opening balance. Registering an
// existing name returns that operator unchanged with created == false.
func (s *OperatorService) Register(name string, balance int64) (op *domain.Operator, created bool, err error) {
	if balance < 0 {
		return nil, false, &domain.ValidationError{Message: "initial_balance must be >= 0"}
	}
	op, created, err = s.store.GetOrCreate(name, balance)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("operator registered",
			slog.String("operator", op.Name),
			slog.Int64("balance", balance),
		)
	}
	return op, created, nil
}

// Get retrieves an operator by name.
func (s *OperatorService) Get(name string) (*domain.Operator, error) {
	return s.store.Get(name)
}

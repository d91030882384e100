package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/service"
)

// OperatorHandler handles HTTP requests for operator endpoints.
type OperatorHandler struct {
	operators *service.OperatorService
	reports   *service.ReportService
}

// NewOperatorHandler creates a new OperatorHandler.
func NewOperatorHandler(operators *service.OperatorService, reports *service.ReportService) *OperatorHandler {
	return &OperatorHandler{operators: operators, reports: reports}
}

// registerOperatorRequest is the JSON request body for POST /operators.
type registerOperatorRequest struct {
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type holdingResponse struct {
	Exchange string          `json:"exchange"`
	Company  string          `json:"company"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

// operatorResponse is the JSON response for the operator endpoints.
type operatorResponse struct {
	Name          string            `json:"name"`
	CreatedAt     string            `json:"created_at"`
	Cash          decimal.Decimal   `json:"cash"`
	Exchanges     []string          `json:"exchanges"`
	Holdings      []holdingResponse `json:"holdings"`
	HoldingsValue decimal.Decimal   `json:"holdings_value"`
	TotalCapital  decimal.Decimal   `json:"total_capital"`
}

// Register handles POST /operators. A new operator answers 201; an
// existing name answers 200 with its current statement.
func (h *OperatorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerOperatorRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	balance, err := domain.UnitsFromDecimal(req.InitialBalance)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "initial_balance: "+err.Error())
		return
	}

	op, created, err := h.operators.Register(req.Name, balance)
	if err != nil {
		mapError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeStatement(w, status, op.Name)
}

// Get handles GET /operators/{operator}.
func (h *OperatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeStatement(w, http.StatusOK, chi.URLParam(r, "operator"))
}

func (h *OperatorHandler) writeStatement(w http.ResponseWriter, status int, name string) {
	rep, err := h.reports.Operator(name)
	if err != nil {
		mapError(w, err)
		return
	}

	holdings := make([]holdingResponse, len(rep.Holdings))
	for i, hl := range rep.Holdings {
		holdings[i] = holdingResponse{
			Exchange: hl.Exchange,
			Company:  hl.Company,
			Quantity: hl.Quantity,
			Price:    domain.UnitsToDecimal(hl.Price),
			Value:    domain.UnitsToDecimal(hl.Value),
		}
	}
	exchanges := rep.Exchanges
	if exchanges == nil {
		exchanges = []string{}
	}

	WriteJSON(w, status, operatorResponse{
		Name:          rep.Name,
		CreatedAt:     rep.CreatedAt.UTC().Format(time.RFC3339),
		Cash:          domain.UnitsToDecimal(rep.Cash),
		Exchanges:     exchanges,
		Holdings:      holdings,
		HoldingsValue: domain.UnitsToDecimal(rep.HoldingsValue),
		TotalCapital:  domain.UnitsToDecimal(rep.TotalCapital),
	})
}

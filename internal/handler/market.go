package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/service"
)

// MarketHandler handles HTTP requests for listings, exchanges, companies
// and account operations.
type MarketHandler struct {
	market  *service.MarketService
	reports *service.ReportService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(market *service.MarketService, reports *service.ReportService) *MarketHandler {
	return &MarketHandler{market: market, reports: reports}
}

// listingRequest is the JSON request body for POST /listings.
type listingRequest struct {
	Company  string          `json:"company"`
	Exchange string          `json:"exchange"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// positionResponse is a single available record.
type positionResponse struct {
	Company  string          `json:"company"`
	Exchange string          `json:"exchange"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// policyRequest is the JSON request body for PUT /exchanges/{exchange}/policy.
type policyRequest struct {
	Policy string `json:"policy"`
}

type policyResponse struct {
	Exchange string `json:"exchange"`
	Policy   string `json:"policy"`
}

type holderResponse struct {
	Operator string          `json:"operator"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type companyLineResponse struct {
	Company   string             `json:"company"`
	Price     decimal.Decimal    `json:"price"`
	Available int64              `json:"available"`
	Listings  []positionResponse `json:"listings"`
	Holders   []holderResponse   `json:"holders"`
}

// exchangeResponse is the JSON response for GET /exchanges/{exchange}.
type exchangeResponse struct {
	Name      string                `json:"name"`
	Policy    string                `json:"policy"`
	Companies []companyLineResponse `json:"companies"`
}

// companyResponse is the JSON response for GET /companies/{company}.
type companyResponse struct {
	Name      string   `json:"name"`
	Exchanges []string `json:"exchanges"`
}

// operationRequest is the JSON request body for POST /operations.
type operationRequest struct {
	Operator string          `json:"operator"`
	Op       string          `json:"op"`
	Exchange string          `json:"exchange"`
	Company  string          `json:"company"`
	Amount   decimal.Decimal `json:"amount"`
}

type operationResponse struct {
	Operator string          `json:"operator"`
	Op       string          `json:"op"`
	Exchange string          `json:"exchange,omitempty"`
	Company  string          `json:"company,omitempty"`
	Amount   int64           `json:"amount"`
	Executed int64           `json:"executed"`
	Price    decimal.Decimal `json:"price"`
	Cash     decimal.Decimal `json:"cash"`
}

// CreateListing handles POST /listings.
func (h *MarketHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	price, err := domain.UnitsFromDecimal(req.Price)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "price: "+err.Error())
		return
	}

	pos, err := h.market.List(service.ListingRequest{
		Company:  req.Company,
		Exchange: req.Exchange,
		Quantity: req.Quantity,
		Price:    price,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, positionResponse{
		Company:  pos.Company,
		Exchange: pos.Exchange,
		Price:    domain.UnitsToDecimal(pos.Price),
		Quantity: pos.Quantity,
	})
}

// SetPolicy handles PUT /exchanges/{exchange}/policy.
func (h *MarketHandler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	exchange := chi.URLParam(r, "exchange")

	p, err := h.market.SetPolicy(exchange, req.Policy)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, policyResponse{Exchange: exchange, Policy: p.String()})
}

// GetExchange handles GET /exchanges/{exchange}.
func (h *MarketHandler) GetExchange(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Exchange(chi.URLParam(r, "exchange"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := exchangeResponse{
		Name:      rep.Name,
		Policy:    rep.Policy,
		Companies: make([]companyLineResponse, len(rep.Companies)),
	}
	for i, line := range rep.Companies {
		listings := make([]positionResponse, len(line.Listings))
		for j, p := range line.Listings {
			listings[j] = positionResponse{
				Company:  p.Company,
				Exchange: p.Exchange,
				Price:    domain.UnitsToDecimal(p.Price),
				Quantity: p.Quantity,
			}
		}
		holders := make([]holderResponse, len(line.Holders))
		for j, hl := range line.Holders {
			holders[j] = holderResponse{
				Operator: hl.Operator,
				Quantity: hl.Quantity,
				Price:    domain.UnitsToDecimal(hl.Price),
			}
		}
		resp.Companies[i] = companyLineResponse{
			Company:   line.Company,
			Price:     domain.UnitsToDecimal(line.Price),
			Available: line.Available,
			Listings:  listings,
			Holders:   holders,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetCompany handles GET /companies/{company}.
func (h *MarketHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Company(chi.URLParam(r, "company"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, companyResponse{Name: rep.Name, Exchanges: rep.Exchanges})
}

// ApplyOperation handles POST /operations.
func (h *MarketHandler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	amount, err := domain.UnitsFromDecimal(req.Amount)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "amount: "+err.Error())
		return
	}

	res, err := h.market.Apply(service.OperationRequest{
		Operator: req.Operator,
		Opcode:   req.Op,
		Exchange: req.Exchange,
		Company:  req.Company,
		Amount:   amount,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, operationResponse{
		Operator: res.Operator,
		Op:       res.Opcode,
		Exchange: res.Exchange,
		Company:  res.Company,
		Amount:   res.Amount,
		Executed: res.Executed,
		Price:    domain.UnitsToDecimal(res.Price),
		Cash:     domain.UnitsToDecimal(res.Cash),
	})
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/toyexchange/internal/domain"
	"github.com/efreitasn/toyexchange/internal/service"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

// TradeHandler serves the trade journal.
type TradeHandler struct {
	market *service.MarketService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(market *service.MarketService) *TradeHandler {
	return &TradeHandler{market: market}
}

type tradeResponse struct {
	TradeID    string          `json:"trade_id"`
	Operator   string          `json:"operator"`
	Side       string          `json:"side"`
	Exchange   string          `json:"exchange"`
	Company    string          `json:"company"`
	Requested  int64           `json:"requested"`
	Executed   int64           `json:"executed"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"`
	ExecutedAt string          `json:"executed_at"`
}

type tradeListResponse struct {
	Trades []tradeResponse `json:"trades"`
	Limit  int             `json:"limit"`
}

type operatorTradesResponse struct {
	Operator string          `json:"operator"`
	Trades   []tradeResponse `json:"trades"`
}

// List handles GET /trades.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}
	if limit > maxTradeLimit {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be at most "+strconv.Itoa(maxTradeLimit))
		return
	}

	trades, err := h.market.RecentTrades(limit)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradeListResponse{Trades: toTradeResponses(trades), Limit: limit})
}

// ListByOperator handles GET /operators/{operator}/trades.
func (h *TradeHandler) ListByOperator(w http.ResponseWriter, r *http.Request) {
	trades, err := h.market.OperatorTrades(chi.URLParam(r, "operator"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, operatorTradesResponse{
		Operator: chi.URLParam(r, "operator"),
		Trades:   toTradeResponses(trades),
	})
}

func toTradeResponses(trades []domain.Trade) []tradeResponse {
	out := make([]tradeResponse, len(trades))
	for i, t := range trades {
		out[i] = tradeResponse{
			TradeID:    t.TradeID,
			Operator:   t.Operator,
			Side:       string(t.Side),
			Exchange:   t.Exchange,
			Company:    t.Company,
			Requested:  t.Requested,
			Executed:   t.Executed,
			Price:      domain.UnitsToDecimal(t.Price),
			Amount:     domain.UnitsToDecimal(t.Amount),
			ExecutedAt: t.ExecutedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

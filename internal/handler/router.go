package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/efreitasn/toyexchange/internal/service"
)

// NewRouter creates a chi router with all routes registered, request
// logging, panic recovery and Content-Type validation middleware.
func NewRouter(
	market *service.MarketService,
	operators *service.OperatorService,
	reports *service.ReportService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware. Recoverer sits inside the logger so a panicking
	// handler is still logged with its 500.
	r.Use(requestLogging(logger))
	r.Use(middleware.Recoverer)
	r.Use(contentTypeJSON)

	marketH := NewMarketHandler(market, reports)
	operatorH := NewOperatorHandler(operators, reports)
	tradeH := NewTradeHandler(market)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/listings", marketH.CreateListing)
	r.Post("/operations", marketH.ApplyOperation)

	r.Route("/exchanges/{exchange}", func(r chi.Router) {
		r.Get("/", marketH.GetExchange)
		r.Put("/policy", marketH.SetPolicy)
	})
	r.Get("/companies/{company}", marketH.GetCompany)

	r.Post("/operators", operatorH.Register)
	r.Get("/operators/{operator}", operatorH.Get)
	r.Get("/operators/{operator}/trades", tradeH.ListByOperator)

	r.Get("/trades", tradeH.List)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

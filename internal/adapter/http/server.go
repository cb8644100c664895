// Package http exposes the forecast API and the operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/pipeline"
)

const maxRequestBytes = 1 << 20

// Forecaster runs forecasts; implemented by pipeline.Predictor.
type Forecaster interface {
	ForecastEvent(ctx context.Context, eventID string) (*pipeline.Forecast, error)
	ForecastManual(ctx context.Context, req pipeline.ManualForecastRequest) (*pipeline.Forecast, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessFunc adapts a plain function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Server exposes the prediction endpoint plus health, readiness, and
// metrics routes.
type Server struct {
	httpServer *http.Server
	forecaster Forecaster
	logger     *slog.Logger
}

// NewServer creates the API server.
func NewServer(addr string, forecaster Forecaster, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecaster: forecaster,
		logger:     logger,
	}

	mux.HandleFunc("POST /v1/predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// predictRequest is the /v1/predict body: either a warehouse event id or a
// manually described event, never both.
type predictRequest struct {
	EventID string         `json:"event_id"`
	Manual  *manualRequest `json:"manual"`
}

type manualRequest struct {
	PlaceID        string          `json:"place_id"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	ArtistID       int64           `json:"artist_id"`
	SaleDate       string          `json:"sale_date"`
	StartDate      string          `json:"start_date"`
	CommercialTier string          `json:"commercial_tier"`
	Tickets        []ticketRequest `json:"tickets"`
}

type ticketRequest struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	var (
		forecast *pipeline.Forecast
		err      error
	)
	switch {
	case req.EventID != "" && req.Manual != nil:
		writeError(w, http.StatusBadRequest, "provide either event_id or manual, not both")
		return
	case req.EventID != "":
		forecast, err = s.forecaster.ForecastEvent(r.Context(), req.EventID)
	case req.Manual != nil:
		var manual pipeline.ManualForecastRequest
		manual, err = req.Manual.toPipeline()
		if err == nil {
			forecast, err = s.forecaster.ForecastManual(r.Context(), manual)
		}
	default:
		writeError(w, http.StatusBadRequest, "provide event_id or manual")
		return
	}

	if err != nil {
		s.writePredictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (s *Server) writePredictError(w http.ResponseWriter, err error) {
	var invalid *pipeline.InvalidInputError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}
	var notFound *pipeline.EventNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	s.logger.Error("forecast failed", "error", err)
	writeError(w, http.StatusInternalServerError, "forecast failed")
}

func (m *manualRequest) toPipeline() (pipeline.ManualForecastRequest, error) {
	req := pipeline.ManualForecastRequest{
		PlaceID:        m.PlaceID,
		City:           m.City,
		State:          m.State,
		ArtistID:       m.ArtistID,
		CommercialTier: m.CommercialTier,
	}

	var err error
	if req.SaleDate, err = parseDate(m.SaleDate); err != nil {
		return req, &pipeline.InvalidInputError{Field: "sale_date", Reason: "expected YYYY-MM-DD"}
	}
	if req.StartDate, err = parseDate(m.StartDate); err != nil {
		return req, &pipeline.InvalidInputError{Field: "start_date", Reason: "expected YYYY-MM-DD"}
	}

	for _, t := range m.Tickets {
		req.Tickets = append(req.Tickets, domain.TicketOffer{
			Name:     t.Name,
			Type:     domain.TicketType(t.Type),
			Price:    t.Price,
			Quantity: t.Quantity,
		})
	}
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

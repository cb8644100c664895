// Package pipeline orchestrates one forecast: gather source records, merge
// them into a feature row, encode it, run the model, and format the
// predictions. Source failures degrade to absent records with a warning;
// the only hard failures are invalid input and a feature row that does not
// match the model's schema.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
)

// InvalidInputError reports a request rejected before any fetch.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// EventNotFoundError reports an event id the warehouse does not know.
type EventNotFoundError struct {
	EventID int64
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("event %d not found", e.EventID)
}

// Sources bundles the record lookups the predictor fans out to. Artists may
// be nil when the metrics provider is disabled; every artist lookup then
// degrades to an absent record.
type Sources struct {
	Venues       domain.VenueSource
	Demographics domain.DemographicsSource
	Genres       domain.GenreStatsSource
	Events       domain.EventSource
	Artists      domain.ArtistMetricsSource
}

// ModelSet is one variant's loaded inference stack.
type ModelSet struct {
	Encoder    *domain.Encoder
	Model      domain.Model
	Convention domain.OutputConvention
	Version    string
	MAE        float64
}

// Forecast is the result of one prediction request: one record per ticket
// offer, plus data-coverage warnings and model metadata.
type Forecast struct {
	EventID      string                    `json:"event_id,omitempty"`
	EventName    string                    `json:"event_name,omitempty"`
	ArtistName   string                    `json:"artist_name,omitempty"`
	Variant      domain.Variant            `json:"variant"`
	ModelVersion string                    `json:"model_version"`
	ModelMAE     float64                   `json:"model_mae"`
	Predictions  []domain.PredictionRecord `json:"predictions"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// ManualForecastRequest carries the operator-entered inputs for a compact
// variant forecast of an event that is not in the warehouse yet.
type ManualForecastRequest struct {
	PlaceID        string
	City           string
	State          string
	ArtistID       int64
	SaleDate       time.Time
	StartDate      time.Time
	CommercialTier string
	Tickets        []domain.TicketOffer
}

// Predictor runs the fetch-assemble-encode-predict-format flow.
type Predictor struct {
	sources Sources
	models  map[domain.Variant]ModelSet
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Predictor. models must hold every variant the service
// serves; a request for an unloaded variant is an internal error.
func New(sources Sources, models map[domain.Variant]ModelSet, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	return &Predictor{
		sources: sources,
		models:  models,
		logger:  logger,
		metrics: metrics,
	}
}

// ForecastEvent predicts sold-out percentages for every ticket offer of a
// warehouse event, full variant. Offers with observed sales carry them in
// the result for side-by-side comparison.
func (p *Predictor) ForecastEvent(ctx context.Context, rawEventID string) (*Forecast, error) {
	start := time.Now()

	eventID, err := strconv.ParseInt(rawEventID, 10, 64)
	if err != nil {
		p.metrics.PredictionRequests.WithLabelValues(string(domain.VariantFull), "invalid_input").Inc()
		return nil, &InvalidInputError{Field: "event_id", Reason: "must be a numeric identifier"}
	}

	event, err := p.sources.Events.EventByID(ctx, eventID)
	if err != nil {
		p.metrics.PredictionRequests.WithLabelValues(string(domain.VariantFull), "model_error").Inc()
		return nil, err
	}
	if event == nil {
		p.metrics.PredictionRequests.WithLabelValues(string(domain.VariantFull), "not_found").Inc()
		return nil, &EventNotFoundError{EventID: eventID}
	}
	if len(event.Offers) == 0 {
		p.metrics.PredictionRequests.WithLabelValues(string(domain.VariantFull), "invalid_input").Inc()
		return nil, &InvalidInputError{Field: "event_id", Reason: "event has no ticket offers"}
	}

	var warnings []string
	base := domain.AssembleInput{Event: &event.Context}

	base.Venue = p.fetchVenue(ctx, event.PlaceID, &warnings)
	base.City = p.fetchCity(ctx, event.City, event.State, &warnings)
	base.State = p.fetchStateStats(ctx, event.State, &warnings)
	base.Genre = p.fetchGenre(ctx, event.Genre, &warnings)
	base.Artist = p.fetchArtist(ctx, event.ArtistChartmetricID, &warnings)
	if base.Artist != nil && base.Artist.TypeGender == "" {
		base.Artist.TypeGender = event.ArtistTypeGender
	}
	if base.Artist == nil && event.ArtistTypeGender != "" {
		base.Artist = domain.NewArtistMetricsRecord()
		base.Artist.TypeGender = event.ArtistTypeGender
	}

	forecast := &Forecast{
		EventID:    rawEventID,
		EventName:  event.Name,
		ArtistName: event.ArtistName,
		Variant:    domain.VariantFull,
		Warnings:   warnings,
	}
	for _, offer := range event.Offers {
		in := base
		in.Offer = offer.TicketOffer
		rec, err := p.predictOne(in, domain.VariantFull, offer.Actual)
		if err != nil {
			return nil, err
		}
		forecast.Predictions = append(forecast.Predictions, rec)
	}

	p.finish(forecast, domain.VariantFull, start)
	return forecast, nil
}

// ForecastManual predicts from operator-entered inputs, compact variant.
func (p *Predictor) ForecastManual(ctx context.Context, req ManualForecastRequest) (*Forecast, error) {
	start := time.Now()

	if err := validateManual(req); err != nil {
		p.metrics.PredictionRequests.WithLabelValues(string(domain.VariantCompact), "invalid_input").Inc()
		return nil, err
	}

	var warnings []string
	base := domain.AssembleInput{
		Event: &domain.EventContext{
			StartedAt:      req.StartDate,
			SaleDate:       req.SaleDate,
			CommercialTier: req.CommercialTier,
		},
	}
	if req.PlaceID != "" {
		base.Venue = p.fetchVenue(ctx, req.PlaceID, &warnings)
	}
	base.City = p.fetchCity(ctx, req.City, req.State, &warnings)
	base.Artist = p.fetchArtist(ctx, req.ArtistID, &warnings)

	forecast := &Forecast{
		Variant:  domain.VariantCompact,
		Warnings: warnings,
	}
	for _, offer := range req.Tickets {
		in := base
		in.Offer = offer
		rec, err := p.predictOne(in, domain.VariantCompact, nil)
		if err != nil {
			return nil, err
		}
		forecast.Predictions = append(forecast.Predictions, rec)
	}

	p.finish(forecast, domain.VariantCompact, start)
	return forecast, nil
}

// predictOne runs one offer through assemble, encode, predict, and format.
func (p *Predictor) predictOne(in domain.AssembleInput, variant domain.Variant, actual *domain.ActualSales) (domain.PredictionRecord, error) {
	set, ok := p.models[variant]
	if !ok {
		return domain.PredictionRecord{}, fmt.Errorf("no model loaded for variant %q", variant)
	}

	row, err := domain.Assemble(in, variant)
	if err != nil {
		return domain.PredictionRecord{}, err
	}

	vector, err := set.Encoder.Encode(row)
	if err != nil {
		var mismatch *domain.SchemaMismatchError
		if errors.As(err, &mismatch) {
			p.metrics.PredictionRequests.WithLabelValues(string(variant), "schema_mismatch").Inc()
		} else {
			p.metrics.PredictionRequests.WithLabelValues(string(variant), "model_error").Inc()
		}
		return domain.PredictionRecord{}, err
	}

	raw, err := set.Model.Predict(vector)
	if err != nil {
		p.metrics.PredictionRequests.WithLabelValues(string(variant), "model_error").Inc()
		return domain.PredictionRecord{}, fmt.Errorf("predict: %w", err)
	}

	return domain.FormatPrediction(raw, in.Offer, set.Convention, actual), nil
}

func (p *Predictor) finish(forecast *Forecast, variant domain.Variant, start time.Time) {
	set := p.models[variant]
	forecast.ModelVersion = set.Version
	forecast.ModelMAE = set.MAE
	p.metrics.PredictionRequests.WithLabelValues(string(variant), "ok").Inc()
	p.metrics.PredictionDuration.WithLabelValues(string(variant)).Observe(time.Since(start).Seconds())
}

// --- source fetches: every failure degrades to an absent record ---

func (p *Predictor) fetchVenue(ctx context.Context, placeID string, warnings *[]string) *domain.VenueRecord {
	if placeID == "" {
		p.missing("venue", warnings, "venue: event has no place id")
		return nil
	}
	venue, err := p.sources.Venues.VenueByPlaceID(ctx, placeID)
	if err != nil {
		p.logger.Warn("venue lookup failed", "place_id", placeID, "error", err)
		p.missing("venue", warnings, "venue: lookup failed")
		return nil
	}
	if venue == nil {
		p.missing("venue", warnings, fmt.Sprintf("venue: no record for place %s", placeID))
	}
	return venue
}

func (p *Predictor) fetchCity(ctx context.Context, city, state string, warnings *[]string) *domain.CityDemographics {
	demo, err := p.sources.Demographics.CityDemographics(ctx, city, state)
	if err != nil {
		p.logger.Warn("city demographics lookup failed", "city", city, "state", state, "error", err)
		demo = nil
	}
	if demo == nil {
		p.missing("demographics", warnings, fmt.Sprintf("demographics: no record for %s, %s", city, state))
	}
	return demo
}

func (p *Predictor) fetchStateStats(ctx context.Context, state string, warnings *[]string) *domain.StateStats {
	stats, err := p.sources.Demographics.StateStats(ctx, state)
	if err != nil {
		p.logger.Warn("state stats lookup failed", "state", state, "error", err)
		stats = nil
	}
	if stats == nil {
		p.missing("state_stats", warnings, fmt.Sprintf("state stats: no record for %s", state))
	}
	return stats
}

func (p *Predictor) fetchGenre(ctx context.Context, genre string, warnings *[]string) *domain.GenreStats {
	if genre == "" {
		p.missing("genre_stats", warnings, "genre stats: event has no genre")
		return nil
	}
	stats, err := p.sources.Genres.GenreStats(ctx, genre)
	if err != nil {
		p.logger.Warn("genre stats lookup failed", "genre", genre, "error", err)
		stats = nil
	}
	if stats == nil {
		p.missing("genre_stats", warnings, fmt.Sprintf("genre stats: no record for %s", genre))
	}
	return stats
}

func (p *Predictor) fetchArtist(ctx context.Context, artistID int64, warnings *[]string) *domain.ArtistMetricsRecord {
	if p.sources.Artists == nil {
		p.missing("artist", warnings, "artist metrics: provider disabled")
		return nil
	}
	if artistID == 0 {
		p.missing("artist", warnings, "artist metrics: artist not linked to provider")
		return nil
	}
	rec, err := p.sources.Artists.ArtistMetrics(ctx, artistID)
	if err != nil {
		p.logger.Warn("artist metrics lookup failed", "artist_id", artistID, "error", err)
		p.missing("artist", warnings, "artist metrics: lookup failed")
		return nil
	}
	if rec == nil {
		p.missing("artist", warnings, fmt.Sprintf("artist metrics: no record for artist %d", artistID))
	}
	return rec
}

func (p *Predictor) missing(source string, warnings *[]string, warning string) {
	p.metrics.MissingSources.WithLabelValues(source).Inc()
	*warnings = append(*warnings, warning)
}

func validateManual(req ManualForecastRequest) error {
	if req.City == "" {
		return &InvalidInputError{Field: "city", Reason: "required"}
	}
	if req.State == "" {
		return &InvalidInputError{Field: "state", Reason: "required"}
	}
	if req.StartDate.IsZero() {
		return &InvalidInputError{Field: "start_date", Reason: "required"}
	}
	if !req.SaleDate.IsZero() && req.StartDate.Before(req.SaleDate) {
		return &InvalidInputError{Field: "start_date", Reason: "must not precede sale_date"}
	}
	if len(req.Tickets) == 0 {
		return &InvalidInputError{Field: "tickets", Reason: "at least one ticket offer required"}
	}
	for i, t := range req.Tickets {
		if t.Price < 0 {
			return &InvalidInputError{Field: fmt.Sprintf("tickets[%d].price", i), Reason: "must not be negative"}
		}
		if t.Quantity <= 0 {
			return &InvalidInputError{Field: fmt.Sprintf("tickets[%d].quantity", i), Reason: "must be positive"}
		}
	}
	return nil
}

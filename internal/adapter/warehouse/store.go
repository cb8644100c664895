// Package warehouse reads the analytics warehouse tables that feed feature
// assembly: venue catalog, census aggregates, sales aggregates, and event
// rows. All queries are parameterized and read-only; a missing row is an
// absent record, not an error.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
)

// Store implements the warehouse-backed source interfaces on a shared
// connection pool. The pool is owned by the caller.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore creates a warehouse store with a per-query timeout.
func NewStore(db *sqlx.DB, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		db:      db,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Ping verifies warehouse connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

const venueQuery = `
	SELECT place_id, name, city, state,
	       ne_lat, ne_lon, sw_lat, sw_lon,
	       rating, rating_count, capacity
	FROM venues
	WHERE place_id = $1`

// VenueByPlaceID returns the venue catalog row for one place, or nil when
// the place is not in the catalog.
func (s *Store) VenueByPlaceID(ctx context.Context, placeID string) (*domain.VenueRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row venueRow
	if err := s.db.GetContext(ctx, &row, venueQuery, placeID); err != nil {
		return nil, s.queryResult("venue", err)
	}
	s.metrics.WarehouseQueries.WithLabelValues("venue", "ok").Inc()
	return row.toDomain(), nil
}

const cityDemographicsQuery = `
	SELECT city, state,
	       income_pct_10, income_pct_30, income_pct_50,
	       income_pct_70, income_pct_90, income_pct_95,
	       pct_lower_class, pct_lower_middle_class,
	       pct_upper_middle_class, pct_upper_class,
	       total_population, households,
	       male_population, female_population,
	       pop_0_11, pop_12_17, pop_18_24, pop_25_34,
	       pop_35_44, pop_45_64, pop_65_up
	FROM city_demographics
	WHERE city = $1 AND state = $2`

// CityDemographics returns census aggregates for one city+state pair.
func (s *Store) CityDemographics(ctx context.Context, city, state string) (*domain.CityDemographics, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row cityRow
	if err := s.db.GetContext(ctx, &row, cityDemographicsQuery, city, state); err != nil {
		return nil, s.queryResult("city_demographics", err)
	}
	s.metrics.WarehouseQueries.WithLabelValues("city_demographics", "ok").Inc()
	return row.toDomain(), nil
}

const stateStatsQuery = `
	SELECT state,
	       foreign_sales_pct, debit_card_sales_pct, traditional_card_sales_pct,
	       gold_card_sales_pct, platinum_card_sales_pct, amex_card_sales_pct
	FROM state_sales_stats
	WHERE state = $1`

// StateStats returns sales aggregates keyed by state alone.
func (s *Store) StateStats(ctx context.Context, state string) (*domain.StateStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row stateRow
	if err := s.db.GetContext(ctx, &row, stateStatsQuery, state); err != nil {
		return nil, s.queryResult("state_stats", err)
	}
	s.metrics.WarehouseQueries.WithLabelValues("state_stats", "ok").Inc()
	return row.toDomain(), nil
}

const genreStatsQuery = `
	SELECT genre,
	       avg_conversion_rate,
	       foreign_sales_pct, debit_card_sales_pct, traditional_card_sales_pct,
	       gold_card_sales_pct, platinum_card_sales_pct, amex_card_sales_pct
	FROM genre_sales_stats
	WHERE genre = $1`

// GenreStats returns sales aggregates for one genre.
func (s *Store) GenreStats(ctx context.Context, genre string) (*domain.GenreStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row genreRow
	if err := s.db.GetContext(ctx, &row, genreStatsQuery, genre); err != nil {
		return nil, s.queryResult("genre_stats", err)
	}
	s.metrics.WarehouseQueries.WithLabelValues("genre_stats", "ok").Inc()
	return row.toDomain(), nil
}

const eventQuery = `
	SELECT e.event_id, e.name, e.place_id, e.city, e.state,
	       e.created_at, e.started_at, e.sale_date,
	       e.commercial_tier, e.similar_events, e.guests,
	       a.name AS artist_name, a.type_gender AS artist_type_gender,
	       a.chartmetric_id AS artist_chartmetric_id,
	       a.genre
	FROM events e
	LEFT JOIN artists a ON a.artist_id = e.artist_id
	WHERE e.event_id = $1`

const eventTicketsQuery = `
	SELECT name, ticket_type, price, quantity, tickets_sold
	FROM event_tickets
	WHERE event_id = $1
	ORDER BY price`

// EventByID returns the event row with its ticket offers, or nil when the
// event is unknown. Offers carry observed sales when the warehouse has
// them, which is what makes historical backtests possible.
func (s *Store) EventByID(ctx context.Context, eventID int64) (*domain.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row eventRow
	if err := s.db.GetContext(ctx, &row, eventQuery, eventID); err != nil {
		return nil, s.queryResult("event", err)
	}

	var tickets []ticketRow
	if err := s.db.SelectContext(ctx, &tickets, eventTicketsQuery, eventID); err != nil {
		s.metrics.WarehouseQueries.WithLabelValues("event", "error").Inc()
		return nil, fmt.Errorf("warehouse event tickets: %w", err)
	}

	s.metrics.WarehouseQueries.WithLabelValues("event", "ok").Inc()
	return row.toDomain(tickets), nil
}

// queryResult maps a query error to the absent-record convention and counts
// the outcome. sql.ErrNoRows is not an error here.
func (s *Store) queryResult(query string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.WarehouseQueries.WithLabelValues(query, "empty").Inc()
		return nil
	}
	s.logger.Error("warehouse query failed", "query", query, "error", err)
	s.metrics.WarehouseQueries.WithLabelValues(query, "error").Inc()
	return fmt.Errorf("warehouse %s: %w", query, err)
}

// --- row types ---

type venueRow struct {
	PlaceID     string          `db:"place_id"`
	Name        string          `db:"name"`
	City        string          `db:"city"`
	State       string          `db:"state"`
	NELat       sql.NullFloat64 `db:"ne_lat"`
	NELon       sql.NullFloat64 `db:"ne_lon"`
	SWLat       sql.NullFloat64 `db:"sw_lat"`
	SWLon       sql.NullFloat64 `db:"sw_lon"`
	Rating      sql.NullFloat64 `db:"rating"`
	RatingCount sql.NullFloat64 `db:"rating_count"`
	Capacity    sql.NullFloat64 `db:"capacity"`
}

func (r venueRow) toDomain() *domain.VenueRecord {
	return &domain.VenueRecord{
		PlaceID:     r.PlaceID,
		Name:        r.Name,
		City:        r.City,
		State:       r.State,
		NorthEast:   corner(r.NELat, r.NELon),
		SouthWest:   corner(r.SWLat, r.SWLon),
		Rating:      nullable(r.Rating),
		RatingCount: nullable(r.RatingCount),
		Capacity:    nullable(r.Capacity),
	}
}

type cityRow struct {
	City  string `db:"city"`
	State string `db:"state"`

	Pct10 sql.NullFloat64 `db:"income_pct_10"`
	Pct30 sql.NullFloat64 `db:"income_pct_30"`
	Pct50 sql.NullFloat64 `db:"income_pct_50"`
	Pct70 sql.NullFloat64 `db:"income_pct_70"`
	Pct90 sql.NullFloat64 `db:"income_pct_90"`
	Pct95 sql.NullFloat64 `db:"income_pct_95"`

	PctLowerClass       sql.NullFloat64 `db:"pct_lower_class"`
	PctLowerMiddleClass sql.NullFloat64 `db:"pct_lower_middle_class"`
	PctUpperMiddleClass sql.NullFloat64 `db:"pct_upper_middle_class"`
	PctUpperClass       sql.NullFloat64 `db:"pct_upper_class"`

	TotalPopulation  sql.NullFloat64 `db:"total_population"`
	Households       sql.NullFloat64 `db:"households"`
	MalePopulation   sql.NullFloat64 `db:"male_population"`
	FemalePopulation sql.NullFloat64 `db:"female_population"`

	Pop0To11   sql.NullFloat64 `db:"pop_0_11"`
	Pop12To17  sql.NullFloat64 `db:"pop_12_17"`
	Pop18To24  sql.NullFloat64 `db:"pop_18_24"`
	Pop25To34  sql.NullFloat64 `db:"pop_25_34"`
	Pop35To44  sql.NullFloat64 `db:"pop_35_44"`
	Pop45To64  sql.NullFloat64 `db:"pop_45_64"`
	Pop65AndUp sql.NullFloat64 `db:"pop_65_up"`
}

func (r cityRow) toDomain() *domain.CityDemographics {
	return &domain.CityDemographics{
		City:                r.City,
		State:               r.State,
		Pct10:               nullable(r.Pct10),
		Pct30:               nullable(r.Pct30),
		Pct50:               nullable(r.Pct50),
		Pct70:               nullable(r.Pct70),
		Pct90:               nullable(r.Pct90),
		Pct95:               nullable(r.Pct95),
		PctLowerClass:       nullable(r.PctLowerClass),
		PctLowerMiddleClass: nullable(r.PctLowerMiddleClass),
		PctUpperMiddleClass: nullable(r.PctUpperMiddleClass),
		PctUpperClass:       nullable(r.PctUpperClass),
		TotalPopulation:     nullable(r.TotalPopulation),
		Households:          nullable(r.Households),
		MalePopulation:      nullable(r.MalePopulation),
		FemalePopulation:    nullable(r.FemalePopulation),
		Pop0To11:            nullable(r.Pop0To11),
		Pop12To17:           nullable(r.Pop12To17),
		Pop18To24:           nullable(r.Pop18To24),
		Pop25To34:           nullable(r.Pop25To34),
		Pop35To44:           nullable(r.Pop35To44),
		Pop45To64:           nullable(r.Pop45To64),
		Pop65AndUp:          nullable(r.Pop65AndUp),
	}
}

type stateRow struct {
	State                   string          `db:"state"`
	ForeignSalesPct         sql.NullFloat64 `db:"foreign_sales_pct"`
	DebitCardSalesPct       sql.NullFloat64 `db:"debit_card_sales_pct"`
	TraditionalCardSalesPct sql.NullFloat64 `db:"traditional_card_sales_pct"`
	GoldCardSalesPct        sql.NullFloat64 `db:"gold_card_sales_pct"`
	PlatinumCardSalesPct    sql.NullFloat64 `db:"platinum_card_sales_pct"`
	AmexCardSalesPct        sql.NullFloat64 `db:"amex_card_sales_pct"`
}

func (r stateRow) toDomain() *domain.StateStats {
	return &domain.StateStats{
		State:                   r.State,
		ForeignSalesPct:         nullable(r.ForeignSalesPct),
		DebitCardSalesPct:       nullable(r.DebitCardSalesPct),
		TraditionalCardSalesPct: nullable(r.TraditionalCardSalesPct),
		GoldCardSalesPct:        nullable(r.GoldCardSalesPct),
		PlatinumCardSalesPct:    nullable(r.PlatinumCardSalesPct),
		AmexCardSalesPct:        nullable(r.AmexCardSalesPct),
	}
}

type genreRow struct {
	Genre                   string          `db:"genre"`
	AvgConversionRate       sql.NullFloat64 `db:"avg_conversion_rate"`
	ForeignSalesPct         sql.NullFloat64 `db:"foreign_sales_pct"`
	DebitCardSalesPct       sql.NullFloat64 `db:"debit_card_sales_pct"`
	TraditionalCardSalesPct sql.NullFloat64 `db:"traditional_card_sales_pct"`
	GoldCardSalesPct        sql.NullFloat64 `db:"gold_card_sales_pct"`
	PlatinumCardSalesPct    sql.NullFloat64 `db:"platinum_card_sales_pct"`
	AmexCardSalesPct        sql.NullFloat64 `db:"amex_card_sales_pct"`
}

func (r genreRow) toDomain() *domain.GenreStats {
	return &domain.GenreStats{
		Genre:                   r.Genre,
		AvgConversionRate:       nullable(r.AvgConversionRate),
		ForeignSalesPct:         nullable(r.ForeignSalesPct),
		DebitCardSalesPct:       nullable(r.DebitCardSalesPct),
		TraditionalCardSalesPct: nullable(r.TraditionalCardSalesPct),
		GoldCardSalesPct:        nullable(r.GoldCardSalesPct),
		PlatinumCardSalesPct:    nullable(r.PlatinumCardSalesPct),
		AmexCardSalesPct:        nullable(r.AmexCardSalesPct),
	}
}

type eventRow struct {
	EventID int64  `db:"event_id"`
	Name    string `db:"name"`
	PlaceID string `db:"place_id"`
	City    string `db:"city"`
	State   string `db:"state"`

	CreatedAt      time.Time       `db:"created_at"`
	StartedAt      time.Time       `db:"started_at"`
	SaleDate       time.Time       `db:"sale_date"`
	CommercialTier string          `db:"commercial_tier"`
	SimilarEvents  sql.NullFloat64 `db:"similar_events"`
	Guests         sql.NullFloat64 `db:"guests"`

	ArtistName          sql.NullString `db:"artist_name"`
	ArtistTypeGender    sql.NullString `db:"artist_type_gender"`
	ArtistChartmetricID sql.NullInt64  `db:"artist_chartmetric_id"`
	Genre               sql.NullString `db:"genre"`
}

type ticketRow struct {
	Name        string          `db:"name"`
	TicketType  sql.NullString  `db:"ticket_type"`
	Price       float64         `db:"price"`
	Quantity    float64         `db:"quantity"`
	TicketsSold sql.NullFloat64 `db:"tickets_sold"`
}

func (r eventRow) toDomain(tickets []ticketRow) *domain.EventRecord {
	rec := &domain.EventRecord{
		EventID:             r.EventID,
		Name:                r.Name,
		PlaceID:             r.PlaceID,
		City:                r.City,
		State:               r.State,
		Genre:               r.Genre.String,
		ArtistName:          r.ArtistName.String,
		ArtistTypeGender:    r.ArtistTypeGender.String,
		ArtistChartmetricID: r.ArtistChartmetricID.Int64,
		Context: domain.EventContext{
			CreatedAt:      r.CreatedAt,
			StartedAt:      r.StartedAt,
			SaleDate:       r.SaleDate,
			CommercialTier: r.CommercialTier,
			SimilarEvents:  nullable(r.SimilarEvents),
			Guests:         nullable(r.Guests),
		},
	}
	for _, t := range tickets {
		offer := domain.EventOffer{
			TicketOffer: domain.TicketOffer{
				Name:     t.Name,
				Type:     domain.TicketType(t.TicketType.String),
				Price:    t.Price,
				Quantity: t.Quantity,
			},
		}
		if t.TicketsSold.Valid {
			offer.Actual = &domain.ActualSales{TicketsSold: t.TicketsSold.Float64}
		}
		rec.Offers = append(rec.Offers, offer)
	}
	return rec
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// corner builds a bounding-box corner only when both coordinates are
// present; a half-specified corner is as useless as a missing one.
func corner(lat, lon sql.NullFloat64) *domain.Geo {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &domain.Geo{Lat: lat.Float64, Lon: lon.Float64}
}

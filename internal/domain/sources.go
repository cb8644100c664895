package domain

import "context"

// Source interfaces are implemented by the warehouse and metrics-provider
// adapters. Every method returns (nil, nil) when no record matches the key;
// errors are reserved for infrastructure failures, which the pipeline
// degrades to an absent record as well. Fetching is idempotent per key, so
// implementations are free to memoize.

// VenueSource looks up venue catalog records.
type VenueSource interface {
	VenueByPlaceID(ctx context.Context, placeID string) (*VenueRecord, error)
}

// DemographicsSource looks up census aggregates. City and state
// granularities have different field sets and are separate lookups.
type DemographicsSource interface {
	CityDemographics(ctx context.Context, city, state string) (*CityDemographics, error)
	StateStats(ctx context.Context, state string) (*StateStats, error)
}

// GenreStatsSource looks up sales aggregates by genre.
type GenreStatsSource interface {
	GenreStats(ctx context.Context, genre string) (*GenreStats, error)
}

// EventSource looks up event rows with their ticket offers.
type EventSource interface {
	EventByID(ctx context.Context, eventID int64) (*EventRecord, error)
}

// ArtistMetricsSource looks up artist popularity metrics by the provider's
// artist identifier.
type ArtistMetricsSource interface {
	ArtistMetrics(ctx context.Context, artistID int64) (*ArtistMetricsRecord, error)
}

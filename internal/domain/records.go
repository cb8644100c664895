package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VenueRecord holds the venue catalog row for one place. Bounding-box
// corners and rating fields are nil when the catalog has no value; a nil
// corner makes the venue area feature null rather than zero.
type VenueRecord struct {
	PlaceID     string
	Name        string
	City        string
	State       string
	NorthEast   *Geo
	SouthWest   *Geo
	Rating      *float64
	RatingCount *float64
	Capacity    *float64
}

// CityDemographics holds census data at city+state granularity: income
// percentiles, class shares, and population breakdowns. It is a different
// aggregate than StateStats and the two must not be conflated.
type CityDemographics struct {
	City  string
	State string

	// Monthly income percentiles in MXN.
	Pct10 *float64
	Pct30 *float64
	Pct50 *float64
	Pct70 *float64
	Pct90 *float64
	Pct95 *float64

	// Socioeconomic class shares, 0..1.
	PctLowerClass       *float64
	PctLowerMiddleClass *float64
	PctUpperMiddleClass *float64
	PctUpperClass       *float64

	TotalPopulation  *float64
	Households       *float64
	MalePopulation   *float64
	FemalePopulation *float64

	// Age band populations (absolute counts).
	Pop0To11   *float64
	Pop12To17  *float64
	Pop18To24  *float64
	Pop25To34  *float64
	Pop35To44  *float64
	Pop45To64  *float64
	Pop65AndUp *float64
}

// StateStats holds sales aggregates at state-only granularity: the share of
// purchases made from outside the event state and card-brand mix. Keyed by
// state alone, coarser than CityDemographics.
type StateStats struct {
	State string

	ForeignSalesPct         *float64
	DebitCardSalesPct       *float64
	TraditionalCardSalesPct *float64
	GoldCardSalesPct        *float64
	PlatinumCardSalesPct    *float64
	AmexCardSalesPct        *float64
}

// GenreStats holds sales aggregates at genre granularity, joined to an
// event through its headline artist's genre.
type GenreStats struct {
	Genre string

	AvgConversionRate       *float64
	ForeignSalesPct         *float64
	DebitCardSalesPct       *float64
	TraditionalCardSalesPct *float64
	GoldCardSalesPct        *float64
	PlatinumCardSalesPct    *float64
	AmexCardSalesPct        *float64
}

// UnrankedSentinel is the placeholder for a missing chart rank. The model
// was trained with this value, so a missing rank must encode as 999999 and
// never as null or zero.
const UnrankedSentinel = 999999

// ArtistMetricsRecord holds per-platform popularity metrics for one artist.
// Fields span three granularities: global, country of interest (MX), and
// city estimates derived by per-capita scaling. Rank fields default to
// UnrankedSentinel, count fields to zero.
type ArtistMetricsRecord struct {
	ArtistID   string
	Name       string
	TypeGender string // "Group", "female", "male", or "" when unknown

	// Chartmetric chart ranks. UnrankedSentinel when not charted.
	CMRank       float64
	CountryRank  float64
	GenreRank    float64
	SubgenreRank float64

	// Spotify.
	SpMonthlyListenersMX        *float64
	SpFollowers                 *float64
	SpListeners                 *float64
	SpFollowersToListenersRatio *float64
	SpPopularity                *float64

	// Instagram.
	IGFollowers      *float64
	IGFollowersMX    *float64
	IGPercentMX      *float64
	IGFemaleAudience *float64
	IGMaleAudience   *float64
	IGAvgLikes       *float64
	IGAvgComments    *float64

	// YouTube.
	YTSubscribers   *float64
	YTSubscribersMX *float64
	YTViews         *float64
	YTVideos        *float64

	// TikTok.
	TTFollowers   *float64
	TTFollowersMX *float64
	TTLikes       *float64

	// Facebook.
	FBLikes *float64
	FBTalks *float64

	YTChannelViews *float64
}

// NewArtistMetricsRecord returns a record with every rank set to
// UnrankedSentinel. Count fields stay nil and default to zero at assembly.
func NewArtistMetricsRecord() *ArtistMetricsRecord {
	return &ArtistMetricsRecord{
		CMRank:       UnrankedSentinel,
		CountryRank:  UnrankedSentinel,
		GenreRank:    UnrankedSentinel,
		SubgenreRank: UnrankedSentinel,
	}
}

// TicketOffer is one ticket type on sale for an event.
type TicketOffer struct {
	Name     string
	Type     TicketType
	Price    float64
	Quantity float64
}

// ActualSales carries observed outcomes for a ticket offer, used only to
// echo ground truth next to a prediction in backtests.
type ActualSales struct {
	TicketsSold float64
}

// EventContext carries event-level inputs that are not owned by any single
// source adapter: timing, organizer tier, and competition signals.
type EventContext struct {
	CreatedAt      time.Time
	StartedAt      time.Time
	SaleDate       time.Time
	CommercialTier string // organizer size: medium, micro, nano, small, super_top, top

	SimilarEvents *float64
	Guests        *float64
}

// EventOffer pairs a ticket offer with its observed sales, when the
// warehouse has them. Actual is nil for upcoming events.
type EventOffer struct {
	TicketOffer
	Actual *ActualSales
}

// EventRecord is the warehouse view of one event: the keys needed to fan
// out to the other sources, the event-level context, and the ticket offers.
type EventRecord struct {
	EventID int64
	Name    string
	PlaceID string
	City    string
	State   string
	Genre   string

	ArtistName          string
	ArtistTypeGender    string // "Group", "female", "male", or "" when unknown
	ArtistChartmetricID int64  // 0 when the artist is not linked to the provider

	Context EventContext
	Offers  []EventOffer
}

// PredictionRecord is the formatted model output for one ticket offer,
// optionally paired with ground-truth actuals.
type PredictionRecord struct {
	TicketType  string       `json:"ticket_type"`
	SoldOutPct  float64      `json:"sold_out_pct"`
	TicketsSold float64      `json:"tickets_sold"`
	Revenue     float64      `json:"revenue"`
	Actual      *ActualStats `json:"actual,omitempty"`
}

// ActualStats mirrors the predicted quantities computed from observed sales.
type ActualStats struct {
	SoldOutPct  float64 `json:"sold_out_pct"`
	TicketsSold float64 `json:"tickets_sold"`
	Revenue     float64 `json:"revenue"`
}

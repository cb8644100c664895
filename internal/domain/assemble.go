package domain

import (
	"math"
	"time"
)

// Per-capita scaling constants. The training pipeline derived city-level
// social metrics from country-level ones using these fixed national
// population figures; both values are part of the model contract and must
// not be "corrected" without retraining.
const (
	// NationalPopulation scales country-level social metrics to city level.
	NationalPopulation = 126_700_000

	// populationShareBase is the denominator for a city's population share.
	populationShareBase = 127_500_000
)

// AssembleInput gathers the per-source contributions for one candidate.
// Any record pointer may be nil: a missing source contributes only
// defaults. The caller is responsible for warning about degraded coverage.
type AssembleInput struct {
	Venue  *VenueRecord
	City   *CityDemographics
	State  *StateStats
	Genre  *GenreStats
	Artist *ArtistMetricsRecord
	Event  *EventContext
	Offer  TicketOffer
}

// Assemble merges source contributions into a complete FeatureRow for the
// given variant. Every schema field is populated: missing venue,
// demographic, and timing inputs become explicit nulls, missing social
// counts become zero, missing chart ranks become UnrankedSentinel, and
// derived ratios propagate null when a denominator is unknown. Assemble
// never fails; strict validation happens once, in the Encoder.
func Assemble(in AssembleInput, variant Variant) (*FeatureRow, error) {
	schema, err := SchemaFor(variant)
	if err != nil {
		return nil, err
	}

	row := NewFeatureRow(variant)
	row.AssembledAt = clock.Now()

	switch variant {
	case VariantFull:
		assembleFull(row, in)
	case VariantCompact:
		assembleCompact(row, in)
	}

	// Defensive completeness check against the schema definition. Assemble
	// and the schema tables must stay in lockstep; a gap here is a
	// programming error that the Encoder would also catch.
	for _, f := range schema.Fields {
		switch f.Kind {
		case Numeric:
			if _, ok := row.Num(f.Name); !ok {
				row.SetNum(f.Name, nil)
			}
		case Flag:
			if _, ok := row.Flag(f.Name); !ok {
				row.SetFlag(f.Name, false)
			}
		}
	}

	return row, nil
}

func assembleFull(row *FeatureRow, in AssembleInput) {
	// Event timing.
	if in.Event != nil && !in.Event.StartedAt.IsZero() {
		row.SetNumValue("EVENT_DAYOFWEEK_START", float64(in.Event.StartedAt.Weekday()))
		row.SetNumValue("EVENT_START_MONTH", float64(in.Event.StartedAt.Month()))
	} else {
		row.SetNum("EVENT_DAYOFWEEK_START", nil)
		row.SetNum("EVENT_START_MONTH", nil)
	}

	// Venue geometry and rating.
	setVenueFields(row, in.Venue, "VENUE_TOTAL_RATINGS")
	if in.Venue != nil {
		row.SetNum("VENUE_CAPACITY", in.Venue.Capacity)
	} else {
		row.SetNum("VENUE_CAPACITY", nil)
	}

	// City demographics and population shares.
	var cityPop *float64
	if in.City != nil {
		cityPop = in.City.TotalPopulation
		row.SetNum("CITY_POPULATION", in.City.TotalPopulation)
		row.SetNum("CITY_AVG_PEOPLE_PER_HOUSE", safeDiv(in.City.TotalPopulation, in.City.Households))
		row.SetNum("CITY_POPULATION_PCT", scaleBy(in.City.TotalPopulation, 1.0/populationShareBase))
		row.SetNum("FEMALE_POPULATION_PCT", safeDiv(in.City.FemalePopulation, in.City.TotalPopulation))
		row.SetNum("MALE_POPULATION_PCT", safeDiv(in.City.MalePopulation, in.City.TotalPopulation))
		row.SetNum("POP_0_11_PCT", safeDiv(in.City.Pop0To11, in.City.TotalPopulation))
		row.SetNum("POP_12_17_PCT", safeDiv(in.City.Pop12To17, in.City.TotalPopulation))
		row.SetNum("POP_18_24_PCT", safeDiv(in.City.Pop18To24, in.City.TotalPopulation))
		row.SetNum("POP_25_34_PCT", safeDiv(in.City.Pop25To34, in.City.TotalPopulation))
		row.SetNum("POP_35_44_PCT", safeDiv(in.City.Pop35To44, in.City.TotalPopulation))
		row.SetNum("POP_45_64_PCT", safeDiv(in.City.Pop45To64, in.City.TotalPopulation))
		row.SetNum("POP_65_AND_MORE_PCT", safeDiv(in.City.Pop65AndUp, in.City.TotalPopulation))
	}
	setIncomePercentiles(row, in.City)
	setTicketIncomeRatios(row, in.City, in.Offer.Price)

	// State and genre sales aggregates.
	if in.State != nil {
		row.SetNum("STATE_FOREIGN_SALES_PCT", in.State.ForeignSalesPct)
		row.SetNum("STATE_DEBIT_CARD_SALES_PCT", in.State.DebitCardSalesPct)
		row.SetNum("STATE_TRADITIONAL_CARD_SALES_PCT", in.State.TraditionalCardSalesPct)
		row.SetNum("STATE_GOLD_CARD_SALES_PCT", in.State.GoldCardSalesPct)
		row.SetNum("STATE_PLATINUM_CARD_SALES_PCT", in.State.PlatinumCardSalesPct)
		row.SetNum("STATE_AMEX_CARD_SALES_PCT", in.State.AmexCardSalesPct)
	}
	if in.Genre != nil {
		row.SetNum("GENRE_AVG_CONVERTION_RATE", in.Genre.AvgConversionRate)
		row.SetNum("GENRE_FOREIGN_SALES_PCT", in.Genre.ForeignSalesPct)
		row.SetNum("GENRE_DEBIT_CARD_SALES_PCT", in.Genre.DebitCardSalesPct)
		row.SetNum("GENRE_TRADITIONAL_CARD_SALES_PCT", in.Genre.TraditionalCardSalesPct)
		row.SetNum("GENRE_GOLD_CARD_SALES_PCT", in.Genre.GoldCardSalesPct)
		row.SetNum("GENRE_PLATINUM_CARD_SALES_PCT", in.Genre.PlatinumCardSalesPct)
		row.SetNum("GENRE_AMEX_CARD_SALES_PCT", in.Genre.AmexCardSalesPct)
	}

	// Artist social metrics: counts default to zero, city estimates derive
	// from the MX figure by population ratio and stay null when either the
	// metric or the city population is unknown.
	artist := in.Artist
	if artist == nil {
		artist = NewArtistMetricsRecord()
	}
	row.SetNumValue("SP_MONTHLY_LISTENERS_MX", zeroIfNil(artist.SpMonthlyListenersMX))
	row.SetNum("SP_MONTHLY_LISTENERS_CITY", perCapita(artist.SpMonthlyListenersMX, cityPop))
	row.SetNumValue("SP_FOLLOWERS", zeroIfNil(artist.SpFollowers))
	row.SetNumValue("SP_LISTENERS", zeroIfNil(artist.SpListeners))
	row.SetNumValue("SP_FOLLOWERS_TO_LISTENERS_RATIO", zeroIfNil(artist.SpFollowersToListenersRatio))
	row.SetNumValue("SP_POPULARITY", zeroIfNil(artist.SpPopularity))
	row.SetNumValue("IG_FOLLOWERS", zeroIfNil(artist.IGFollowers))
	row.SetNumValue("IG_FOLLOWERS_MX", zeroIfNil(artist.IGFollowersMX))
	row.SetNum("IG_FOLLOWERS_CITY", perCapita(artist.IGFollowersMX, cityPop))
	row.SetNumValue("YT_SUBSCRIBERS", zeroIfNil(artist.YTSubscribers))
	row.SetNumValue("YT_SUBSCRIBERS_MX", zeroIfNil(artist.YTSubscribersMX))
	row.SetNum("YT_SUBSCRIBERS_CITY", perCapita(artist.YTSubscribersMX, cityPop))
	row.SetNumValue("YT_VIEWS", zeroIfNil(artist.YTViews))
	row.SetNumValue("YT_VIDEOS", zeroIfNil(artist.YTVideos))
	row.SetNumValue("TT_FOLLOWERS", zeroIfNil(artist.TTFollowers))
	row.SetNumValue("TT_FOLLOWERS_MX", zeroIfNil(artist.TTFollowersMX))
	row.SetNum("TT_FOLLOWERS_CITY", perCapita(artist.TTFollowersMX, cityPop))
	row.SetNumValue("TT_LIKES", zeroIfNil(artist.TTLikes))

	// Competition signals are counts: zero when unknown.
	if in.Event != nil {
		row.SetNumValue("SIMILAR_EVENTS", zeroIfNil(in.Event.SimilarEvents))
		row.SetNumValue("GUESTS", zeroIfNil(in.Event.Guests))
	} else {
		row.SetNumValue("SIMILAR_EVENTS", 0)
		row.SetNumValue("GUESTS", 0)
	}

	row.SetNumValue("TICKET_TYPE_PRICE", in.Offer.Price)
	row.SetNumValue("TICKET_TYPE_QUANTITY", in.Offer.Quantity)

	setTicketTypeFlags(row, in.Offer)
	setArtistTypeGenderFlags(row, artist.TypeGender)
}

func assembleCompact(row *FeatureRow, in AssembleInput) {
	// Timing features derived from sale and event dates.
	if in.Event != nil && !in.Event.StartedAt.IsZero() {
		row.SetNumValue("START_WEEK", float64(sundayWeekOfYear(in.Event.StartedAt)))
		row.SetNumValue("START_DAY", float64(in.Event.StartedAt.YearDay()))
		if !in.Event.SaleDate.IsZero() {
			lead := in.Event.StartedAt.Sub(in.Event.SaleDate).Hours() / 24
			row.SetNumValue("LEAD_TIME_DAYS", math.Floor(lead))
		}
	}

	setVenueFields(row, in.Venue, "VENUE_RATINGS_TOTAL")

	artist := in.Artist
	if artist == nil {
		artist = NewArtistMetricsRecord()
	}
	row.SetNumValue("CM_RANK", artist.CMRank)
	row.SetNumValue("COUNTRY_RANK", artist.CountryRank)
	row.SetNumValue("GENRE_RANK", artist.GenreRank)
	row.SetNumValue("SUBGENRE_RANK", artist.SubgenreRank)
	row.SetNumValue("IG_FEMALE_AUDIENCE", zeroIfNil(artist.IGFemaleAudience))
	row.SetNumValue("IG_MALE_AUDIENCE", zeroIfNil(artist.IGMaleAudience))
	row.SetNumValue("IG_FOLLOWERS", zeroIfNil(artist.IGFollowers))
	row.SetNumValue("IG_AVG_LIKES", zeroIfNil(artist.IGAvgLikes))
	row.SetNumValue("IG_AVG_COMMENTS", zeroIfNil(artist.IGAvgComments))
	row.SetNumValue("SPOTIFY_FOLLOWERS", zeroIfNil(artist.SpFollowers))
	row.SetNumValue("SPOTIFY_POPULARITY", zeroIfNil(artist.SpPopularity))
	row.SetNumValue("SPOTIFY_LISTENERS", zeroIfNil(artist.SpListeners))
	row.SetNumValue("SPOTIFY_FOLLOWERS_TO_LISTENERS_RATIO", zeroIfNil(artist.SpFollowersToListenersRatio))
	row.SetNumValue("FACEBOOK_LIKES", zeroIfNil(artist.FBLikes))
	row.SetNumValue("FACEBOOK_TALKS", zeroIfNil(artist.FBTalks))
	row.SetNumValue("YOUTUBE_CHANNEL_VIEWS", zeroIfNil(artist.YTChannelViews))
	row.SetNumValue("IG_FOLLOWERS_MX", zeroIfNil(artist.IGFollowersMX))
	row.SetNumValue("IG_PERCENT_MX", zeroIfNil(artist.IGPercentMX))

	setIncomePercentiles(row, in.City)
	setTicketIncomeRatios(row, in.City, in.Offer.Price)
	if in.City != nil {
		row.SetNum("PCT_LOWER_CLASS", in.City.PctLowerClass)
		row.SetNum("PCT_LOWER_MIDDLE_CLASS", in.City.PctLowerMiddleClass)
		row.SetNum("PCT_UPPER_MIDDLE_CLASS", in.City.PctUpperMiddleClass)
		row.SetNum("PCT_UPPER_CLASS", in.City.PctUpperClass)
		row.SetNum("TOTAL_POPULATION", in.City.TotalPopulation)
		row.SetNum("FEMALE_POPULATION_PCT", safeDiv(in.City.FemalePopulation, in.City.TotalPopulation))
		row.SetNum("MALE_POPULATION_PCT", safeDiv(in.City.MalePopulation, in.City.TotalPopulation))
	}

	row.SetNumValue("TICKET_TYPE_PRICE", in.Offer.Price)
	row.SetNumValue("TICKET_TYPE_QUANTITY", in.Offer.Quantity)

	tier := ""
	if in.Event != nil {
		tier = in.Event.CommercialTier
	}
	setCommercialTierFlags(row, tier)
}

// setVenueFields populates rating, rating count, and area from the venue
// record. ratingsField differs between variants for historical reasons: the
// two models were trained against different column names.
func setVenueFields(row *FeatureRow, venue *VenueRecord, ratingsField string) {
	if venue == nil {
		row.SetNum("VENUE_RATING", nil)
		row.SetNum(ratingsField, nil)
		row.SetNum("VENUE_AREA", nil)
		return
	}
	row.SetNum("VENUE_RATING", venue.Rating)
	row.SetNum(ratingsField, venue.RatingCount)
	if venue.NorthEast != nil && venue.SouthWest != nil {
		row.SetNum("VENUE_AREA", BoundingBoxArea(*venue.NorthEast, *venue.SouthWest))
	} else {
		row.SetNum("VENUE_AREA", nil)
	}
}

func setIncomePercentiles(row *FeatureRow, city *CityDemographics) {
	if city == nil {
		return
	}
	row.SetNum("PCT_10", city.Pct10)
	row.SetNum("PCT_30", city.Pct30)
	row.SetNum("PCT_50", city.Pct50)
	row.SetNum("PCT_70", city.Pct70)
	row.SetNum("PCT_90", city.Pct90)
	row.SetNum("PCT_95", city.Pct95)
}

// setTicketIncomeRatios derives the share of each income-percentile band's
// monthly income that one ticket represents, as a percentage. A null or
// non-positive percentile propagates null, never a division error.
func setTicketIncomeRatios(row *FeatureRow, city *CityDemographics, price float64) {
	bands := []struct {
		field string
		pct   *float64
	}{
		{"TICKET_PCT_10", nil}, {"TICKET_PCT_30", nil}, {"TICKET_PCT_50", nil},
		{"TICKET_PCT_70", nil}, {"TICKET_PCT_90", nil}, {"TICKET_PCT_95", nil},
	}
	if city != nil {
		bands[0].pct = city.Pct10
		bands[1].pct = city.Pct30
		bands[2].pct = city.Pct50
		bands[3].pct = city.Pct70
		bands[4].pct = city.Pct90
		bands[5].pct = city.Pct95
	}
	for _, b := range bands {
		row.SetNum(b.field, ticketIncomeRatio(price, b.pct))
	}
}

// ticketIncomeRatio computes price / income * 100.
func ticketIncomeRatio(price float64, income *float64) *float64 {
	if income == nil || *income <= 0 {
		return nil
	}
	return ptr(price / *income * 100)
}

// perCapita scales a country-level metric down to city level by population
// ratio, rounded to a whole count as the training pipeline did.
func perCapita(metric, localPopulation *float64) *float64 {
	if metric == nil || localPopulation == nil {
		return nil
	}
	return ptr(math.Round(*metric * *localPopulation / NationalPopulation))
}

// safeDiv divides two optional values, propagating null for a missing or
// zero denominator.
func safeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return ptr(*num / *den)
}

func scaleBy(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(*v * factor)
}

func zeroIfNil(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// setTicketTypeFlags one-hot encodes the ticket category. The categories
// are mutually exclusive; an unrecognized name leaves all flags false.
func setTicketTypeFlags(row *FeatureRow, offer TicketOffer) {
	t := offer.Type
	if t == "" {
		t = ClassifyTicketType(offer.Name)
	}
	row.SetFlag("GENERAL_TICKET", t == TicketGeneral)
	row.SetFlag("VIP_TICKET", t == TicketVIP)
	row.SetFlag("MEET_AND_GREET_TICKET", t == TicketMeetAndGreet)
}

func setArtistTypeGenderFlags(row *FeatureRow, tg string) {
	for _, v := range ArtistTypeGenders {
		row.SetFlag(artistTypeGenderField(v), v == tg)
	}
}

func setCommercialTierFlags(row *FeatureRow, tier string) {
	for _, v := range CommercialTiers {
		row.SetFlag(commercialTierField(v), v == tier)
	}
}

// sundayWeekOfYear returns the week of the year (0-53) counting Sunday as
// the first day of the week, matching strftime's %U convention the compact
// model was trained with.
func sundayWeekOfYear(t time.Time) int {
	return (t.YearDay() + 6 - int(t.Weekday())) / 7
}

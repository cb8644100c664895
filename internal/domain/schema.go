package domain

import (
	"fmt"
	"strings"
)

// Variant names a versioned model schema. Each variant pins the exact field
// set and column order its model was trained on; the Assembler and Encoder
// are both parameterized by it and never mix variants.
type Variant string

const (
	// VariantFull is the warehouse-backed model with the complete
	// social/demographic feature set and ticket-type flags.
	VariantFull Variant = "full"

	// VariantCompact is the reduced manual-entry model: timing fields,
	// chart ranks, class shares, and organizer-tier flags.
	VariantCompact Variant = "compact"
)

// FieldKind distinguishes scaled numeric columns from 0/1 indicator columns.
type FieldKind int

const (
	Numeric FieldKind = iota
	Flag
)

// Field is one named column of a model schema.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is the ordered column definition for one model variant. Column
// order is part of the trained model contract; reordering silently corrupts
// predictions, so schemas are defined once here and validated at startup
// against the model artifact.
type Schema struct {
	Variant Variant
	Fields  []Field
}

// SchemaFor returns the schema for a variant. Unknown variants are an error:
// there is no safe default column order.
func SchemaFor(v Variant) (Schema, error) {
	switch v {
	case VariantFull:
		return Schema{Variant: VariantFull, Fields: fullFields}, nil
	case VariantCompact:
		return Schema{Variant: VariantCompact, Fields: compactFields}, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema variant %q", v)
	}
}

// Columns returns the ordered column names.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Name
	}
	return cols
}

// NumericColumns returns the ordered names of scaled numeric columns only.
func (s Schema) NumericColumns() []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Kind == Numeric {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Validate checks the schema for duplicate or empty column names. Run at
// startup so a bad schema edit fails the process, not a prediction.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: empty column name", s.Variant)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate column %s", s.Variant, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no columns", s.Variant)
	}
	return nil
}

// TicketType is the closed ticket-category enumeration. The zero value
// means unrecognized and one-hot encodes as all-false.
type TicketType string

const (
	TicketGeneral      TicketType = "general"
	TicketVIP          TicketType = "vip"
	TicketMeetAndGreet TicketType = "meet_and_greet"
)

// ClassifyTicketType maps a free-form ticket name to its category. Matching
// is case-insensitive on substrings, with meet-and-greet checked first so a
// name like "VIP Meet & Greet" yields exactly one category.
func ClassifyTicketType(name string) TicketType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "meet") || strings.Contains(n, "greet"):
		return TicketMeetAndGreet
	case strings.Contains(n, "vip") || strings.Contains(n, "v.i.p."):
		return TicketVIP
	case strings.Contains(n, "general"):
		return TicketGeneral
	default:
		return ""
	}
}

// CommercialTiers enumerates organizer size categories, in the one-hot
// column order the compact model was trained on.
var CommercialTiers = []string{"medium", "micro", "nano", "small", "super_top", "top"}

// ArtistTypeGenders enumerates artist classification values, in one-hot
// column order.
var ArtistTypeGenders = []string{"Group", "female", "male"}

// commercialTierField and artistTypeGenderField build indicator column names.
func commercialTierField(tier string) string {
	return "COMMERCIAL_VALUE_" + tier
}

func artistTypeGenderField(tg string) string {
	return "ARTIST_TYPE_GENDER_" + tg
}

// fullFields is the rich warehouse-backed column order.
var fullFields = []Field{
	{"EVENT_DAYOFWEEK_START", Numeric},
	{"EVENT_START_MONTH", Numeric},
	{"VENUE_RATING", Numeric},
	{"VENUE_TOTAL_RATINGS", Numeric},
	{"VENUE_CAPACITY", Numeric},
	{"VENUE_AREA", Numeric},
	{"CITY_AVG_PEOPLE_PER_HOUSE", Numeric},
	{"CITY_POPULATION", Numeric},
	{"CITY_POPULATION_PCT", Numeric},
	{"FEMALE_POPULATION_PCT", Numeric},
	{"MALE_POPULATION_PCT", Numeric},
	{"POP_0_11_PCT", Numeric},
	{"POP_12_17_PCT", Numeric},
	{"POP_18_24_PCT", Numeric},
	{"POP_25_34_PCT", Numeric},
	{"POP_35_44_PCT", Numeric},
	{"POP_45_64_PCT", Numeric},
	{"POP_65_AND_MORE_PCT", Numeric},
	{"PCT_10", Numeric},
	{"PCT_30", Numeric},
	{"PCT_50", Numeric},
	{"PCT_70", Numeric},
	{"PCT_90", Numeric},
	{"PCT_95", Numeric},
	{"TICKET_PCT_10", Numeric},
	{"TICKET_PCT_30", Numeric},
	{"TICKET_PCT_50", Numeric},
	{"TICKET_PCT_70", Numeric},
	{"TICKET_PCT_90", Numeric},
	{"TICKET_PCT_95", Numeric},
	{"STATE_FOREIGN_SALES_PCT", Numeric},
	{"STATE_DEBIT_CARD_SALES_PCT", Numeric},
	{"STATE_TRADITIONAL_CARD_SALES_PCT", Numeric},
	{"STATE_GOLD_CARD_SALES_PCT", Numeric},
	{"STATE_PLATINUM_CARD_SALES_PCT", Numeric},
	{"STATE_AMEX_CARD_SALES_PCT", Numeric},
	{"GENRE_AVG_CONVERTION_RATE", Numeric},
	{"GENRE_FOREIGN_SALES_PCT", Numeric},
	{"GENRE_DEBIT_CARD_SALES_PCT", Numeric},
	{"GENRE_TRADITIONAL_CARD_SALES_PCT", Numeric},
	{"GENRE_GOLD_CARD_SALES_PCT", Numeric},
	{"GENRE_PLATINUM_CARD_SALES_PCT", Numeric},
	{"GENRE_AMEX_CARD_SALES_PCT", Numeric},
	{"SP_MONTHLY_LISTENERS_MX", Numeric},
	{"SP_MONTHLY_LISTENERS_CITY", Numeric},
	{"SP_FOLLOWERS", Numeric},
	{"SP_LISTENERS", Numeric},
	{"SP_FOLLOWERS_TO_LISTENERS_RATIO", Numeric},
	{"SP_POPULARITY", Numeric},
	{"IG_FOLLOWERS", Numeric},
	{"IG_FOLLOWERS_MX", Numeric},
	{"IG_FOLLOWERS_CITY", Numeric},
	{"YT_SUBSCRIBERS", Numeric},
	{"YT_SUBSCRIBERS_MX", Numeric},
	{"YT_SUBSCRIBERS_CITY", Numeric},
	{"YT_VIEWS", Numeric},
	{"YT_VIDEOS", Numeric},
	{"TT_FOLLOWERS", Numeric},
	{"TT_FOLLOWERS_MX", Numeric},
	{"TT_FOLLOWERS_CITY", Numeric},
	{"TT_LIKES", Numeric},
	{"SIMILAR_EVENTS", Numeric},
	{"GUESTS", Numeric},
	{"TICKET_TYPE_PRICE", Numeric},
	{"TICKET_TYPE_QUANTITY", Numeric},
	{"GENERAL_TICKET", Flag},
	{"VIP_TICKET", Flag},
	{"MEET_AND_GREET_TICKET", Flag},
	{"ARTIST_TYPE_GENDER_Group", Flag},
	{"ARTIST_TYPE_GENDER_female", Flag},
	{"ARTIST_TYPE_GENDER_male", Flag},
}

// compactFields is the reduced manual-entry column order.
var compactFields = []Field{
	{"LEAD_TIME_DAYS", Numeric},
	{"START_WEEK", Numeric},
	{"START_DAY", Numeric},
	{"VENUE_RATING", Numeric},
	{"VENUE_RATINGS_TOTAL", Numeric},
	{"CM_RANK", Numeric},
	{"COUNTRY_RANK", Numeric},
	{"GENRE_RANK", Numeric},
	{"SUBGENRE_RANK", Numeric},
	{"IG_FEMALE_AUDIENCE", Numeric},
	{"IG_MALE_AUDIENCE", Numeric},
	{"IG_FOLLOWERS", Numeric},
	{"IG_AVG_LIKES", Numeric},
	{"IG_AVG_COMMENTS", Numeric},
	{"SPOTIFY_FOLLOWERS", Numeric},
	{"SPOTIFY_POPULARITY", Numeric},
	{"SPOTIFY_LISTENERS", Numeric},
	{"SPOTIFY_FOLLOWERS_TO_LISTENERS_RATIO", Numeric},
	{"FACEBOOK_LIKES", Numeric},
	{"FACEBOOK_TALKS", Numeric},
	{"YOUTUBE_CHANNEL_VIEWS", Numeric},
	{"PCT_10", Numeric},
	{"PCT_30", Numeric},
	{"PCT_50", Numeric},
	{"PCT_70", Numeric},
	{"PCT_90", Numeric},
	{"PCT_95", Numeric},
	{"PCT_LOWER_CLASS", Numeric},
	{"PCT_LOWER_MIDDLE_CLASS", Numeric},
	{"PCT_UPPER_MIDDLE_CLASS", Numeric},
	{"PCT_UPPER_CLASS", Numeric},
	{"TOTAL_POPULATION", Numeric},
	{"MALE_POPULATION_PCT", Numeric},
	{"FEMALE_POPULATION_PCT", Numeric},
	{"TICKET_TYPE_PRICE", Numeric},
	{"TICKET_TYPE_QUANTITY", Numeric},
	{"IG_FOLLOWERS_MX", Numeric},
	{"IG_PERCENT_MX", Numeric},
	{"VENUE_AREA", Numeric},
	{"TICKET_PCT_10", Numeric},
	{"TICKET_PCT_30", Numeric},
	{"TICKET_PCT_50", Numeric},
	{"TICKET_PCT_70", Numeric},
	{"TICKET_PCT_90", Numeric},
	{"TICKET_PCT_95", Numeric},
	{"COMMERCIAL_VALUE_medium", Flag},
	{"COMMERCIAL_VALUE_micro", Flag},
	{"COMMERCIAL_VALUE_nano", Flag},
	{"COMMERCIAL_VALUE_small", Flag},
	{"COMMERCIAL_VALUE_super_top", Flag},
	{"COMMERCIAL_VALUE_top", Flag},
}

// Package domain implements the feature-engineering core of the sold-out
// forecast pipeline: record types for each data source, the declarative
// model schemas, the Assembler, the Encoder, and the prediction formatter.
//
// # Data Sources
//
// Feature inputs come from four places: the warehouse venue catalog (Google
// Maps place data with bounding boxes and ratings), INEGI census income and
// population data at city+state granularity, Chartmetric artist popularity
// metrics (chart ranks, Spotify/Instagram/YouTube/TikTok/Facebook figures),
// and the ticketing system's own offers and historical sales.
//
// # Defaulting Policy
//
// A missing source never fails assembly. Each field class has a documented
// default:
//
//	Chart ranks:                  UnrankedSentinel (999999). The models were
//	                              trained with this placeholder; null or zero
//	                              would shift the rank distribution.
//	Social-media counts:          0 (matches the provider's own COALESCE
//	                              defaults in the training data).
//	Venue, demographic, timing:   explicit null, imputed by the scaler at
//	                              encode time. Zero would read as a real
//	                              measurement (a zero-area venue, a city with
//	                              no income) and bias the model.
//	Derived ratios:               null whenever a denominator is unknown or
//	                              non-positive; never a division error.
//	Categorical flags:            all-false block for unrecognized values.
//
// # Units and Conventions
//
// Venue area is in square meters, from a flat-rectangle approximation of
// the bounding box (valid at city scale). Income percentiles are monthly
// MXN; TICKET_PCT_p is the ticket price as a percentage of band p's income.
// City-level social metrics are estimated from country-level ones by
// population ratio against fixed national constants (see NationalPopulation).
// Week-of-year uses the Sunday-first %U convention.
//
// # Schema Variants
//
// Two model variants exist: "full" (warehouse-backed, rich feature set) and
// "compact" (manual entry, reduced set). Each pins an exact column order in
// schema.go; the Assembler fills every column of its variant and the
// Encoder hard-fails on any gap, because silent column misalignment is the
// single highest-risk failure mode of the pipeline.
package domain

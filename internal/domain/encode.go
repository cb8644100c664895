package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ScalerStats holds the training-time statistics for one numeric column.
// Encoding applies (value - Mean) / Scale; a null value first imputes to
// Impute. All three are fit at training time and shipped in the model
// artifact — they are never re-fit at inference.
type ScalerStats struct {
	Mean   float64
	Scale  float64
	Impute float64
}

// Scaler maps numeric column names to their training statistics.
type Scaler map[string]ScalerStats

// SchemaMismatchError reports FeatureRow fields the schema requires but the
// row does not carry. This is the one hard failure in the pipeline: a
// silently misaligned column order corrupts every downstream prediction.
type SchemaMismatchError struct {
	Variant Variant
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema %s: feature row missing fields: %s",
		e.Variant, strings.Join(e.Missing, ", "))
}

// Encoder converts FeatureRows of one schema variant into the ordered
// numeric vectors its model consumes.
type Encoder struct {
	schema Schema
	scaler Scaler
}

// NewEncoder builds an Encoder after validating that the scaler covers
// every numeric column of the schema and has sane scales. Run once at
// startup; a bad artifact must fail the process, not a request.
func NewEncoder(schema Schema, scaler Scaler) (*Encoder, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range schema.NumericColumns() {
		stats, ok := scaler[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if stats.Scale <= 0 {
			return nil, fmt.Errorf("scaler for %s: non-positive scale %g", name, stats.Scale)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("scaler missing columns: %s", strings.Join(missing, ", "))
	}

	return &Encoder{schema: schema, scaler: scaler}, nil
}

// Columns returns the encoder's fixed output column order.
func (e *Encoder) Columns() []string {
	return e.schema.Columns()
}

// Encode produces the model input vector for a row: scaled numerics in
// schema order, flags as 0/1. A row from a different variant or missing a
// required field yields a SchemaMismatchError; an all-false flag block
// (unrecognized categorical value) is accepted as-is.
func (e *Encoder) Encode(row *FeatureRow) ([]float64, error) {
	if row.Variant != e.schema.Variant {
		return nil, fmt.Errorf("encode: row variant %q does not match schema %q",
			row.Variant, e.schema.Variant)
	}

	vector := make([]float64, 0, len(e.schema.Fields))
	var missing []string

	for _, f := range e.schema.Fields {
		switch f.Kind {
		case Numeric:
			v, ok := row.Num(f.Name)
			if !ok {
				missing = append(missing, f.Name)
				continue
			}
			stats := e.scaler[f.Name]
			raw := stats.Impute
			if v != nil {
				raw = *v
			}
			vector = append(vector, (raw-stats.Mean)/stats.Scale)
		case Flag:
			v, ok := row.Flag(f.Name)
			if !ok {
				missing = append(missing, f.Name)
				continue
			}
			if v {
				vector = append(vector, 1)
			} else {
				vector = append(vector, 0)
			}
		}
	}

	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Variant: e.schema.Variant, Missing: missing}
	}
	return vector, nil
}

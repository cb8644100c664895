package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityScaler builds a pass-through scaler (mean 0, scale 1, impute 0)
// covering every numeric column of the schema.
func identityScaler(s Schema) Scaler {
	scaler := make(Scaler)
	for _, name := range s.NumericColumns() {
		scaler[name] = ScalerStats{Mean: 0, Scale: 1, Impute: 0}
	}
	return scaler
}

func TestNewEncoder(t *testing.T) {
	schema, err := SchemaFor(VariantCompact)
	require.NoError(t, err)

	t.Run("valid scaler", func(t *testing.T) {
		_, err := NewEncoder(schema, identityScaler(schema))
		assert.NoError(t, err)
	})

	t.Run("scaler missing a column", func(t *testing.T) {
		scaler := identityScaler(schema)
		delete(scaler, "CM_RANK")
		_, err := NewEncoder(schema, scaler)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CM_RANK")
	})

	t.Run("non-positive scale", func(t *testing.T) {
		scaler := identityScaler(schema)
		scaler["PCT_50"] = ScalerStats{Mean: 15000, Scale: 0}
		_, err := NewEncoder(schema, scaler)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PCT_50")
	})
}

func TestEncode(t *testing.T) {
	t.Run("vector length matches schema for every variant", func(t *testing.T) {
		for _, variant := range []Variant{VariantFull, VariantCompact} {
			t.Run(string(variant), func(t *testing.T) {
				schema, err := SchemaFor(variant)
				require.NoError(t, err)
				enc, err := NewEncoder(schema, identityScaler(schema))
				require.NoError(t, err)

				row, err := Assemble(AssembleInput{
					Venue: fixtureVenue(),
					City:  fixtureCity(),
					Offer: generalOffer(),
				}, variant)
				require.NoError(t, err)

				vector, err := enc.Encode(row)
				require.NoError(t, err)
				assert.Len(t, vector, len(schema.Fields))
			})
		}
	})

	t.Run("applies linear transform", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		scaler := identityScaler(schema)
		scaler["TICKET_TYPE_PRICE"] = ScalerStats{Mean: 400, Scale: 200, Impute: 400}
		enc, err := NewEncoder(schema, scaler)
		require.NoError(t, err)

		row, err := Assemble(AssembleInput{Offer: generalOffer()}, VariantCompact)
		require.NoError(t, err)

		vector, err := enc.Encode(row)
		require.NoError(t, err)

		idx := columnIndex(t, schema, "TICKET_TYPE_PRICE")
		assert.InDelta(t, (500.0-400)/200, vector[idx], 1e-9)
	})

	t.Run("null numeric imputes before scaling", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		scaler := identityScaler(schema)
		scaler["VENUE_AREA"] = ScalerStats{Mean: 1000, Scale: 500, Impute: 1000}
		enc, err := NewEncoder(schema, scaler)
		require.NoError(t, err)

		// No venue: VENUE_AREA is null and must land on the standardized
		// imputation value, not on -Mean/Scale.
		row, err := Assemble(AssembleInput{Offer: generalOffer()}, VariantCompact)
		require.NoError(t, err)

		vector, err := enc.Encode(row)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, vector[columnIndex(t, schema, "VENUE_AREA")], 1e-9)
	})

	t.Run("flags encode as 0 and 1", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		enc, err := NewEncoder(schema, identityScaler(schema))
		require.NoError(t, err)

		row, err := Assemble(AssembleInput{
			Event: &EventContext{CommercialTier: "nano"},
			Offer: generalOffer(),
		}, VariantCompact)
		require.NoError(t, err)

		vector, err := enc.Encode(row)
		require.NoError(t, err)

		assert.Equal(t, 1.0, vector[columnIndex(t, schema, "COMMERCIAL_VALUE_nano")])
		assert.Equal(t, 0.0, vector[columnIndex(t, schema, "COMMERCIAL_VALUE_top")])
	})

	t.Run("all-false flag block is accepted", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		enc, err := NewEncoder(schema, identityScaler(schema))
		require.NoError(t, err)

		row, err := Assemble(AssembleInput{
			Event: &EventContext{CommercialTier: "not-a-tier"},
			Offer: generalOffer(),
		}, VariantCompact)
		require.NoError(t, err)

		_, err = enc.Encode(row)
		assert.NoError(t, err)
	})

	t.Run("missing field is a schema mismatch naming the field", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		enc, err := NewEncoder(schema, identityScaler(schema))
		require.NoError(t, err)

		row := NewFeatureRow(VariantCompact)
		row.SetNumValue("CM_RANK", 17)

		_, err = enc.Encode(row)
		require.Error(t, err)
		var mismatch *SchemaMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, VariantCompact, mismatch.Variant)
		assert.Contains(t, mismatch.Missing, "PCT_50")
		assert.NotContains(t, mismatch.Missing, "CM_RANK")
	})

	t.Run("variant mismatch is rejected", func(t *testing.T) {
		schema, err := SchemaFor(VariantCompact)
		require.NoError(t, err)
		enc, err := NewEncoder(schema, identityScaler(schema))
		require.NoError(t, err)

		row, err := Assemble(AssembleInput{Offer: generalOffer()}, VariantFull)
		require.NoError(t, err)

		_, err = enc.Encode(row)
		assert.Error(t, err)
	})
}

func columnIndex(t *testing.T, schema Schema, name string) int {
	t.Helper()
	for i, col := range schema.Columns() {
		if col == name {
			return i
		}
	}
	t.Fatalf("column %s not in schema %s", name, schema.Variant)
	return -1
}

package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketera/sellout-forecast/internal/domain"
)

// writeArtifact builds a well-formed artifact for the variant, applies
// mutate, and writes it to a temp file.
func writeArtifact(t *testing.T, variant domain.Variant, mutate func(map[string]any)) string {
	t.Helper()

	schema, err := domain.SchemaFor(variant)
	require.NoError(t, err)

	columns := schema.Columns()
	coefficients := make([]float64, len(columns))
	for i := range coefficients {
		coefficients[i] = 0.01
	}
	scalers := make(map[string]any, len(columns))
	for _, name := range schema.NumericColumns() {
		scalers[name] = map[string]float64{"mean": 0, "scale": 1, "impute": 0}
	}

	doc := map[string]any{
		"name":         "sellout-forecast",
		"version":      "2026.02",
		"variant":      string(variant),
		"output":       "fraction",
		"mae":          0.08,
		"intercept":    0.25,
		"columns":      columns,
		"coefficients": coefficients,
		"scaler":       scalers,
	}
	if mutate != nil {
		mutate(doc)
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeArtifact(t, domain.VariantCompact, nil)

	art, err := Load(path, domain.VariantCompact)
	require.NoError(t, err)

	assert.Equal(t, "sellout-forecast", art.Name)
	assert.Equal(t, "2026.02", art.Version)
	assert.Equal(t, domain.VariantCompact, art.Variant)
	assert.Equal(t, domain.OutputFraction, art.Convention)
	assert.Equal(t, 0.08, art.MAE)

	// The scaler must satisfy the encoder for the same variant.
	schema, err := domain.SchemaFor(domain.VariantCompact)
	require.NoError(t, err)
	_, err = domain.NewEncoder(schema, art.Scaler)
	require.NoError(t, err)
}

func TestLoad_FullVariant(t *testing.T) {
	path := writeArtifact(t, domain.VariantFull, func(doc map[string]any) {
		doc["output"] = "percent"
	})

	art, err := Load(path, domain.VariantFull)
	require.NoError(t, err)
	assert.Equal(t, domain.OutputPercent, art.Convention)
}

func TestLoad_VariantMismatch(t *testing.T) {
	path := writeArtifact(t, domain.VariantCompact, nil)

	_, err := Load(path, domain.VariantFull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `variant "compact"`)
}

func TestLoad_UnknownConvention(t *testing.T) {
	path := writeArtifact(t, domain.VariantCompact, func(doc map[string]any) {
		doc["output"] = "ratio"
	})

	_, err := Load(path, domain.VariantCompact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output convention")
}

func TestLoad_ColumnOrderDrift(t *testing.T) {
	path := writeArtifact(t, domain.VariantCompact, func(doc map[string]any) {
		columns := doc["columns"].([]string)
		columns[0], columns[1] = columns[1], columns[0]
	})

	_, err := Load(path, domain.VariantCompact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 0")
}

func TestLoad_CoefficientCountMismatch(t *testing.T) {
	path := writeArtifact(t, domain.VariantCompact, func(doc map[string]any) {
		doc["coefficients"] = []float64{1, 2, 3}
	})

	_, err := Load(path, domain.VariantCompact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coefficients")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), domain.VariantCompact)
	require.Error(t, err)
}

func TestLinearModel_Predict(t *testing.T) {
	m := &LinearModel{intercept: 0.5, coefficients: []float64{1, 2, -1}}

	got, err := m.Predict([]float64{1, 0.25, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5+1+0.5-2, got, 1e-12)
}

func TestLinearModel_Predict_LengthMismatch(t *testing.T) {
	m := &LinearModel{intercept: 0, coefficients: []float64{1, 2}}

	_, err := m.Predict([]float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector length 1")
}

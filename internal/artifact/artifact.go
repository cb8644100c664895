// Package artifact loads the versioned model artifacts produced by the
// offline training jobs: a linear model, its feature column order, and the
// scaler statistics, one JSON file per schema variant. Loading happens once
// at startup and a bad artifact fails the process.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ticketera/sellout-forecast/internal/domain"
)

// Artifact is a loaded, validated model artifact for one schema variant.
type Artifact struct {
	Name       string
	Version    string
	Variant    domain.Variant
	Convention domain.OutputConvention
	// MAE is the training-time mean absolute error, reported alongside
	// predictions so callers can judge them.
	MAE float64

	Model  *LinearModel
	Scaler domain.Scaler
}

type artifactFile struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Variant      string            `json:"variant"`
	Output       string            `json:"output"`
	MAE          float64           `json:"mae"`
	Intercept    float64           `json:"intercept"`
	Columns      []string          `json:"columns"`
	Coefficients []float64         `json:"coefficients"`
	Scaler       map[string]scaler `json:"scaler"`
}

type scaler struct {
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
	Impute float64 `json:"impute"`
}

// Load reads and validates the artifact at path against the schema of the
// expected variant. The artifact's column list must match the schema's
// column order exactly; a drifted artifact is a deployment error.
func Load(path string, variant domain.Variant) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var file artifactFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}

	if domain.Variant(file.Variant) != variant {
		return nil, fmt.Errorf("artifact %s: variant %q, want %q", path, file.Variant, variant)
	}
	conv := domain.OutputConvention(file.Output)
	if !conv.Valid() {
		return nil, fmt.Errorf("artifact %s: unknown output convention %q", path, file.Output)
	}
	if len(file.Coefficients) != len(file.Columns) {
		return nil, fmt.Errorf("artifact %s: %d coefficients for %d columns",
			path, len(file.Coefficients), len(file.Columns))
	}

	schema, err := domain.SchemaFor(variant)
	if err != nil {
		return nil, err
	}
	if err := columnsMatch(file.Columns, schema.Columns()); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	stats := make(domain.Scaler, len(file.Scaler))
	for name, s := range file.Scaler {
		stats[name] = domain.ScalerStats{Mean: s.Mean, Scale: s.Scale, Impute: s.Impute}
	}

	return &Artifact{
		Name:       file.Name,
		Version:    file.Version,
		Variant:    variant,
		Convention: conv,
		MAE:        file.MAE,
		Model:      &LinearModel{intercept: file.Intercept, coefficients: file.Coefficients},
		Scaler:     stats,
	}, nil
}

// columnsMatch requires the exact training column order. Same names in a
// different order would silently pair features with the wrong coefficients.
func columnsMatch(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%d columns, schema has %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("column %d is %q, schema has %q", i, got[i], want[i])
		}
	}
	return nil
}

// LinearModel is a fitted linear regression over the encoded feature vector.
type LinearModel struct {
	intercept    float64
	coefficients []float64
}

// Predict computes intercept + coefficients · vector.
func (m *LinearModel) Predict(vector []float64) (float64, error) {
	if len(vector) != len(m.coefficients) {
		return 0, fmt.Errorf("predict: vector length %d, model expects %d",
			len(vector), len(m.coefficients))
	}
	sum := m.intercept
	for i, v := range vector {
		sum += m.coefficients[i] * v
	}
	return sum, nil
}

package domain

// Model is a pre-trained regression model. Predict consumes a vector in the
// exact column order of the model's schema variant and returns the raw
// sold-out prediction, whose unit (fraction vs percentage) is declared by
// the model's OutputConvention.
type Model interface {
	Predict(vector []float64) (float64, error)
}

// OutputConvention declares whether a model's raw prediction is a 0..1
// fraction or an already-scaled 0..100 percentage. The two trained variants
// disagree on this, so the convention is carried explicitly in the model
// artifact instead of being inferred at a call site.
type OutputConvention string

const (
	OutputFraction OutputConvention = "fraction"
	OutputPercent  OutputConvention = "percent"
)

// Valid reports whether the convention is a known value.
func (c OutputConvention) Valid() bool {
	return c == OutputFraction || c == OutputPercent
}

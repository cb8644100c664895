package domain

import (
	"time"
)

// FeatureRow is the complete feature set for one candidate (event, ticket
// type) pair. Every field of its schema variant is present after assembly:
// numeric fields hold a value or an explicit null, flag fields hold a
// boolean. Rows are built once by Assemble and must not be mutated after
// being handed to an Encoder.
type FeatureRow struct {
	Variant     Variant
	AssembledAt time.Time

	nums  map[string]*float64
	flags map[string]bool
}

// NewFeatureRow creates an empty row for a variant.
func NewFeatureRow(v Variant) *FeatureRow {
	return &FeatureRow{
		Variant: v,
		nums:    make(map[string]*float64),
		flags:   make(map[string]bool),
	}
}

// SetNum stores a numeric field. A nil pointer records an explicit null,
// which is distinct from the field being absent: null encodes via the
// scaler's imputation value, absence is a schema mismatch.
func (r *FeatureRow) SetNum(name string, v *float64) {
	r.nums[name] = v
}

// SetNumValue stores a concrete numeric value.
func (r *FeatureRow) SetNumValue(name string, v float64) {
	r.nums[name] = &v
}

// Num returns the numeric field value and whether the field is present.
// The returned pointer is nil for an explicit null.
func (r *FeatureRow) Num(name string) (*float64, bool) {
	v, ok := r.nums[name]
	return v, ok
}

// SetFlag stores an indicator field.
func (r *FeatureRow) SetFlag(name string, v bool) {
	r.flags[name] = v
}

// Flag returns the indicator field value and whether the field is present.
func (r *FeatureRow) Flag(name string) (bool, bool) {
	v, ok := r.flags[name]
	return v, ok
}

// Len returns the total number of populated fields.
func (r *FeatureRow) Len() int {
	return len(r.nums) + len(r.flags)
}

func ptr(v float64) *float64 { return &v }

// Command validate checks model artifacts against their schema variants
// without starting the service: column order, scaler coverage, output
// convention, and a smoke prediction on a fully-imputed feature row. Run it
// in CI before promoting a retrained model.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -full models/sellout_full.json \
//	  -compact models/sellout_compact.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ticketera/sellout-forecast/internal/artifact"
	"github.com/ticketera/sellout-forecast/internal/domain"
)

func main() {
	fullPath := flag.String("full", "", "path to the full-variant artifact")
	compactPath := flag.String("compact", "", "path to the compact-variant artifact")
	flag.Parse()

	if *fullPath == "" && *compactPath == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "at least one of -full, -compact is required")
		os.Exit(2)
	}

	failed := false
	if *fullPath != "" {
		failed = !check(domain.VariantFull, *fullPath) || failed
	}
	if *compactPath != "" {
		failed = !check(domain.VariantCompact, *compactPath) || failed
	}
	if failed {
		os.Exit(1)
	}
}

func check(variant domain.Variant, path string) bool {
	art, err := artifact.Load(path, variant)
	if err != nil {
		fmt.Printf("FAIL %s: %v\n", variant, err)
		return false
	}

	schema, err := domain.SchemaFor(variant)
	if err != nil {
		fmt.Printf("FAIL %s: %v\n", variant, err)
		return false
	}
	encoder, err := domain.NewEncoder(schema, art.Scaler)
	if err != nil {
		fmt.Printf("FAIL %s: %v\n", variant, err)
		return false
	}

	// Smoke prediction: an empty assembly exercises every default path and
	// the full encode-predict chain.
	row, err := domain.Assemble(domain.AssembleInput{}, variant)
	if err != nil {
		fmt.Printf("FAIL %s: assemble: %v\n", variant, err)
		return false
	}
	vector, err := encoder.Encode(row)
	if err != nil {
		fmt.Printf("FAIL %s: encode: %v\n", variant, err)
		return false
	}
	raw, err := art.Model.Predict(vector)
	if err != nil {
		fmt.Printf("FAIL %s: predict: %v\n", variant, err)
		return false
	}

	fmt.Printf("OK   %s: version=%s columns=%d mae=%g output=%s baseline=%g\n",
		variant, art.Version, len(vector), art.MAE, art.Convention, raw)
	return true
}

// Command genartifact writes a development model artifact for a schema
// variant: identity scalers, zero coefficients, and a fixed intercept. The
// output is structurally valid and loads through the same path as a real
// artifact, which makes it useful for local runs and integration tests.
//
// Usage:
//
//	go run ./cmd/genartifact -variant compact -intercept 0.35 -out models/sellout_compact.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ticketera/sellout-forecast/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	variantFlag := flag.String("variant", "", "schema variant: full or compact")
	intercept := flag.Float64("intercept", 0.35, "constant prediction the artifact produces")
	out := flag.String("out", "", "output path")
	flag.Parse()

	if *variantFlag == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -variant, -out")
	}

	variant := domain.Variant(*variantFlag)
	schema, err := domain.SchemaFor(variant)
	if err != nil {
		return err
	}

	columns := schema.Columns()
	scalers := make(map[string]map[string]float64, len(columns))
	for _, name := range schema.NumericColumns() {
		scalers[name] = map[string]float64{"mean": 0, "scale": 1, "impute": 0}
	}

	doc := map[string]any{
		"name":         "sellout-forecast-dev",
		"version":      "dev",
		"variant":      string(variant),
		"output":       string(domain.OutputFraction),
		"mae":          0.0,
		"intercept":    *intercept,
		"columns":      columns,
		"coefficients": make([]float64, len(columns)),
		"scaler":       scalers,
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, append(raw, '\n'), 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s artifact with %d columns to %s\n", variant, len(columns), *out)
	return nil
}

// Package schema validates measurement output against the fixed
// three-field contract consumed by downstream tooling. The contract
// requires numeric, non-negative energy_kwh, co2_kg and duration_s;
// extra fields are tolerated but never produced by the core.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid wraps every schema violation so callers can test for the
// class without parsing validator messages.
var ErrInvalid = errors.New("schema: invalid measurement output")

const measurementSchema = `{
  "type": "object",
  "required": ["energy_kwh", "co2_kg", "duration_s"],
  "properties": {
    "energy_kwh": {
      "type": "number",
      "minimum": 0,
      "description": "Energy consumption in kilowatt-hours"
    },
    "co2_kg": {
      "type": "number",
      "minimum": 0,
      "description": "CO2 emissions in kilograms"
    },
    "duration_s": {
      "type": "number",
      "minimum": 0,
      "description": "Execution duration in seconds"
    }
  },
  "additionalProperties": true
}`

var schemaLoader = gojsonschema.NewStringLoader(measurementSchema)

// Validate checks a measurement output mapping against the contract.
// Total-loss failures of the validator itself and plain violations both
// surface as errors; a passing document returns nil.
func Validate(data map[string]any) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("schema: validate: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// ValidateResultMap adapts the core's map[string]float64 output.
func ValidateResultMap(m map[string]float64) error {
	doc := make(map[string]any, len(m))
	for k, v := range m {
		doc[k] = v
	}
	return Validate(doc)
}

package measure

import "fmt"

// Result is the validated outcome of measuring one command: energy
// consumed, CO2 emitted, and wall-clock duration. It is immutable once
// constructed and serializes to a flat three-key mapping.
type Result struct {
	EnergyKWh float64 `json:"energy_kwh"`
	CO2Kg     float64 `json:"co2_kg"`
	DurationS float64 `json:"duration_s"`
}

// NewResult validates all fields up front; any negative value fails
// immediately rather than deferring to the caller.
func NewResult(energyKWh, co2Kg, durationS float64) (Result, error) {
	switch {
	case energyKWh < 0:
		return Result{}, fmt.Errorf("energy_kwh %v: %w", energyKWh, ErrNegativeValue)
	case co2Kg < 0:
		return Result{}, fmt.Errorf("co2_kg %v: %w", co2Kg, ErrNegativeValue)
	case durationS < 0:
		return Result{}, fmt.Errorf("duration_s %v: %w", durationS, ErrNegativeValue)
	}
	return Result{EnergyKWh: energyKWh, CO2Kg: co2Kg, DurationS: durationS}, nil
}

// ToMap returns the flat key/value form consumed by the output schema
// validator. Exactly these three keys are produced.
func (r Result) ToMap() map[string]float64 {
	return map[string]float64{
		"energy_kwh": r.EnergyKWh,
		"co2_kg":     r.CO2Kg,
		"duration_s": r.DurationS,
	}
}

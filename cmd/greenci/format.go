package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perschulte/ecoci/pkg/measure"
)

// formatResult renders the measurement as a flat JSON object with plain
// decimal numbers. encoding/json would emit scientific notation for the
// small energy figures, which downstream CI parsers choke on, so the
// values are formatted as fixed-point and trimmed.
func formatResult(r measure.Result) string {
	return fmt.Sprintf(`{"energy_kwh": %s, "co2_kg": %s, "duration_s": %s}`,
		fmtFloat(r.EnergyKWh, 8),
		fmtFloat(r.CO2Kg, 8),
		fmtFloat(r.DurationS, 6),
	)
}

// fmtFloat renders v with at most prec decimals, trailing zeros trimmed.
// A value that trims to nothing after the point becomes a bare integer.
func fmtFloat(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

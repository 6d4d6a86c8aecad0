package measure

import (
	"github.com/perschulte/ecoci/pkg/sampler"
)

// Config holds the power model coefficients.
// Units:
//   - CPUBaseW: Watts drawn by the CPU at 0% utilization
//   - CPUPerPctW: Watts per percentage point of CPU utilization
//   - MemPerGBW: Watts per GB of resident memory
//   - SystemBaseW: idle system draw in Watts
//   - FloorKWh: minimum reportable energy per run
type Config struct {
	CPUBaseW    float64
	CPUPerPctW  float64
	MemPerGBW   float64
	SystemBaseW float64
	FloorKWh    float64

	// Fallback averages applied when a run yields no samples.
	FallbackCPUPct float64
	FallbackMemGB  float64
}

// _defaultConfig returns the fixed coefficients of the published model.
// These values are the reproducible contract of the estimator: typical
// laptop draw of ~15W CPU base + 0.5W per % usage, 3W per GB of RAM,
// and 20W base system, floored at 1 mWh per run.
func _defaultConfig() *Config {
	return &Config{
		CPUBaseW:       15.0,
		CPUPerPctW:     0.5,
		MemPerGBW:      3.0,
		SystemBaseW:    20.0,
		FloorKWh:       0.000001,
		FallbackCPUPct: 5.0,
		FallbackMemGB:  0.05,
	}
}

// Estimator converts aggregated usage samples plus elapsed time into an
// energy figure using a fixed linear power model.
type Estimator struct {
	cfg *Config
}

// NewEstimator creates an estimator with the given config. Fields > 0
// in cfg override the defaults; everything else keeps the published
// coefficients, so NewEstimator(nil) is the canonical model.
func NewEstimator(cfg *Config) *Estimator {
	base := _defaultConfig()

	if cfg == nil {
		return &Estimator{cfg: base}
	}

	merged := *base
	if cfg.CPUBaseW > 0 {
		merged.CPUBaseW = cfg.CPUBaseW
	}
	if cfg.CPUPerPctW > 0 {
		merged.CPUPerPctW = cfg.CPUPerPctW
	}
	if cfg.MemPerGBW > 0 {
		merged.MemPerGBW = cfg.MemPerGBW
	}
	if cfg.SystemBaseW > 0 {
		merged.SystemBaseW = cfg.SystemBaseW
	}
	if cfg.FloorKWh > 0 {
		merged.FloorKWh = cfg.FloorKWh
	}
	if cfg.FallbackCPUPct > 0 {
		merged.FallbackCPUPct = cfg.FallbackCPUPct
	}
	if cfg.FallbackMemGB > 0 {
		merged.FallbackMemGB = cfg.FallbackMemGB
	}

	return &Estimator{cfg: &merged}
}

// Estimate returns the energy in kWh for the given samples and elapsed
// duration. An empty sample set is legal (commands faster than one
// sampling tick) and uses the fallback averages. The result never drops
// below the floor: a command that ran at all has nonzero cost.
func (e *Estimator) Estimate(samples []sampler.Sample, durationS float64) float64 {
	avgCPU := e.cfg.FallbackCPUPct
	avgMemGB := e.cfg.FallbackMemGB

	if len(samples) > 0 {
		var sumCPU, sumMemGB float64
		for _, s := range samples {
			sumCPU += s.CPUPercent
			sumMemGB += s.RSS.GB()
		}
		n := float64(len(samples))
		avgCPU = sumCPU / n
		avgMemGB = sumMemGB / n
	}

	cpuPowerW := e.cfg.CPUBaseW + avgCPU*e.cfg.CPUPerPctW
	memPowerW := avgMemGB * e.cfg.MemPerGBW
	totalPowerW := cpuPowerW + memPowerW + e.cfg.SystemBaseW

	energyKWh := totalPowerW * (durationS / 3600) / 1000

	if energyKWh < e.cfg.FloorKWh {
		return e.cfg.FloorKWh
	}
	return energyKWh
}

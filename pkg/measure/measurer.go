// Package measure estimates the energy consumption and CO2 emissions of
// a single command execution. A measurement composes three collaborators:
// a carbon-intensity lookup, a resource sampler for the child process,
// and a linear power model. External failures (carbon API, process
// launch) degrade to defaults instead of aborting, so any successfully
// requested measurement produces a result.
package measure

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/perschulte/ecoci/pkg/carbon"
	"github.com/perschulte/ecoci/pkg/sampler"
)

// Fixed figures reported by the stub strategy.
const (
	StubEnergyKWh = 0.001  // 1 Wh
	StubCO2Kg     = 0.0005 // 0.5 g CO2
)

// Measurer is one measurement strategy. Implementations must be safe to
// discard after a single use; no state is shared across invocations.
type Measurer interface {
	Measure(ctx context.Context, command []string) (Result, error)
}

// IntensityProvider yields grid carbon intensity in gCO2/kWh. It never
// fails; degraded lookups return a default (see pkg/carbon).
type IntensityProvider interface {
	Intensity(ctx context.Context, zone string) float64
}

// CommandSampler runs a command and collects its resource usage trace.
type CommandSampler interface {
	Run(ctx context.Context, command []string) sampler.Trace
}

// EnergyMeasurer is the real strategy: sample the child, estimate its
// energy, convert to CO2 mass via grid carbon intensity.
type EnergyMeasurer struct {
	intensity IntensityProvider
	sampler   CommandSampler
	estimator *Estimator
	zone      string
}

// NewEnergyMeasurer composes the real measurement pipeline. A nil
// estimator selects the default model.
func NewEnergyMeasurer(p IntensityProvider, s CommandSampler, est *Estimator, zone string) *EnergyMeasurer {
	if est == nil {
		est = NewEstimator(nil)
	}
	return &EnergyMeasurer{intensity: p, sampler: s, estimator: est, zone: zone}
}

// Measure runs the command and returns its measured footprint. The
// intensity lookup and the sampler both absorb their own failures, so
// the only error paths left are input validation and the final result
// invariant check.
func (m *EnergyMeasurer) Measure(ctx context.Context, command []string) (Result, error) {
	if len(command) == 0 {
		return Result{}, ErrEmptyCommand
	}

	intensity := m.intensity.Intensity(ctx, m.zone)

	trace := m.sampler.Run(ctx, command)

	energyKWh := m.estimator.Estimate(trace.Samples, trace.DurationS)
	co2Kg := energyKWh * (intensity / 1000) // gCO2 -> kgCO2

	// Re-validate non-negativity independently of the estimator.
	return NewResult(energyKWh, co2Kg, trace.DurationS)
}

// StubMeasurer reports fixed energy and CO2 figures for test runs. The
// child process is still executed and waited on, so the duration is
// genuine and child failures are absorbed exactly like in real mode.
type StubMeasurer struct{}

func (StubMeasurer) Measure(ctx context.Context, command []string) (Result, error) {
	if len(command) == 0 {
		return Result{}, ErrEmptyCommand
	}

	start := time.Now()

	// Output stays discarded (devnull); only the timing matters here.
	cmd := exec.Command(command[0], command[1:]...)
	_ = cmd.Run()

	return NewResult(StubEnergyKWh, StubCO2Kg, time.Since(start).Seconds())
}

// Options configures NewMeasurer.
type Options struct {
	// TestMode selects the stub strategy. The recognized environment
	// toggle (GREEN_CI_TEST=1) is read by the CLI, never in here.
	TestMode bool

	// Zone is the electricity zone for the carbon-intensity lookup.
	// Empty selects the provider default.
	Zone string

	// APIKey authenticates against the carbon-intensity API. Empty
	// disables the lookup and uses the default intensity.
	APIKey string

	// Interval overrides the sampling cadence; zero keeps the default.
	Interval time.Duration

	Log zerolog.Logger
}

// NewMeasurer builds the strategy described by opts: the stub in test
// mode, otherwise the full sampling pipeline with the default model.
func NewMeasurer(opts Options) Measurer {
	if opts.TestMode {
		return StubMeasurer{}
	}
	return NewEnergyMeasurer(
		carbon.NewClient(opts.APIKey, opts.Log),
		sampler.New(opts.Interval, opts.Log),
		NewEstimator(nil),
		opts.Zone,
	)
}

// MeasureCommand is the orchestrating entry point: it rejects empty
// commands before anything is spawned and delegates to the injected
// strategy.
func MeasureCommand(ctx context.Context, m Measurer, command []string) (Result, error) {
	if len(command) == 0 {
		return Result{}, ErrEmptyCommand
	}
	return m.Measure(ctx, command)
}

// EnvAPIKey is the environment variable carrying the Electricity Maps
// API key, shared by the CLI and CI environments.
const EnvAPIKey = "ELECTRICITY_MAPS_API_KEY"

// APIKeyFromEnv reads the carbon API credential from the environment.
func APIKeyFromEnv() string { return os.Getenv(EnvAPIKey) }

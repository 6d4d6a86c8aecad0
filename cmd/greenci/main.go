package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/perschulte/ecoci/pkg/carbon"
	"github.com/perschulte/ecoci/pkg/measure"
	"github.com/perschulte/ecoci/pkg/schema"
)

const version = "0.1.0"

// envTestMode enables the stub strategy when set to "1"; anything else,
// including unset, runs the real sampling pipeline.
const envTestMode = "GREEN_CI_TEST"

type opts struct {
	zone     string
	interval time.Duration
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	var o opts

	root := &cobra.Command{
		Use:     "green-ci",
		Short:   "Energy and carbon footprint measurement for CI/CD pipelines",
		Version: version,
		Long: `green-ci measures the energy consumption and CO2 emissions of a
command by sampling its CPU and memory usage while it runs and applying
a fixed linear power model. CO2 mass uses the grid carbon intensity of
the configured electricity zone (Electricity Maps), falling back to the
global average when no API key is configured.

Examples:
  green-ci measure echo "hello world"
  green-ci measure npm test
  green-ci measure --zone US-CA make build`,
		SilenceErrors: true,
	}

	measureCmd := &cobra.Command{
		Use:   "measure [command...]",
		Short: "Measure energy consumption and CO2 emissions of a command",
		Long: `Runs the given command, samples its resource usage until it exits,
and prints a JSON object with energy_kwh, co2_kg and duration_s.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(cmd, o, args, log)
		},
	}
	measureCmd.Flags().StringVarP(&o.zone, "zone", "z", carbon.DefaultZone,
		"electricity zone for carbon intensity (e.g. DE, US-CA)")
	measureCmd.Flags().DurationVarP(&o.interval, "interval", "i", 0,
		"sampling interval (0 = 100ms default)")
	measureCmd.Flags().SetInterspersed(false)

	root.AddCommand(measureCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMeasure(cmd *cobra.Command, o opts, args []string, log zerolog.Logger) error {
	cmd.SilenceUsage = true

	m := measure.NewMeasurer(measure.Options{
		TestMode: os.Getenv(envTestMode) == "1",
		Zone:     o.zone,
		APIKey:   measure.APIKeyFromEnv(),
		Interval: o.interval,
		Log:      log,
	})

	result, err := measure.MeasureCommand(cmd.Context(), m, args)
	if err != nil {
		return err
	}

	// An invalid output here means a broken internal invariant, not a
	// user mistake; it still aborts with a non-zero exit.
	if err := schema.ValidateResultMap(result.ToMap()); err != nil {
		return err
	}

	fmt.Println(formatResult(result))
	return nil
}

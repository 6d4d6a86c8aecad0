//go:build linux

package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSampler(interval time.Duration) *Sampler {
	return New(interval, zerolog.Nop())
}

func TestSampler_Run_FastCommand(t *testing.T) {
	s := newTestSampler(0)

	tr := s.Run(context.Background(), []string{"true"})

	// A command faster than one tick may legally yield zero samples,
	// but the wall-clock duration is always real.
	assert.Greater(t, tr.DurationS, 0.0)
	t.Logf("fast command: %d samples over %.6fs", len(tr.Samples), tr.DurationS)
}

func TestSampler_Run_SleepCollectsSamples(t *testing.T) {
	s := newTestSampler(50 * time.Millisecond)

	tr := s.Run(context.Background(), []string{"sleep", "0.3"})

	require.GreaterOrEqual(t, tr.DurationS, 0.3)
	require.NotEmpty(t, tr.Samples)
	for i, smp := range tr.Samples {
		assert.GreaterOrEqual(t, smp.CPUPercent, 0.0, "tick %d", i)
		t.Logf("tick %d: cpu=%.3f%% rss=%s", i+1, smp.CPUPercent, smp.RSS.Humanized())
	}
}

func TestSampler_Run_LaunchFailureDegrades(t *testing.T) {
	s := newTestSampler(0)

	tr := s.Run(context.Background(), []string{"/nonexistent/binary/ecoci-test"})

	// Launch failure substitutes exactly one synthetic low-usage sample
	// so estimation downstream can proceed.
	require.Len(t, tr.Samples, 1)
	assert.Equal(t, FallbackCPUPercent, tr.Samples[0].CPUPercent)
	assert.Equal(t, FallbackRSS, tr.Samples[0].RSS)
	assert.GreaterOrEqual(t, tr.DurationS, 0.0)
}

func TestSampler_Run_EmptyCommandDegrades(t *testing.T) {
	// The orchestrator rejects empty commands before the sampler sees
	// them; if one slips through, the sampler still degrades instead
	// of panicking.
	s := newTestSampler(0)

	tr := s.Run(context.Background(), nil)

	require.Len(t, tr.Samples, 1)
	assert.Equal(t, FallbackCPUPercent, tr.Samples[0].CPUPercent)
}

func TestSampler_Run_ContextCancelStopsPolling(t *testing.T) {
	s := newTestSampler(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// The child is still waited on even when polling stops early.
	tr := s.Run(ctx, []string{"sleep", "0.3"})
	require.GreaterOrEqual(t, tr.DurationS, 0.3)
}

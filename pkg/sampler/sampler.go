// Package sampler launches a command as a child process and polls its
// CPU and resident memory usage at a fixed interval while it runs.
// The collected Trace feeds the energy model in pkg/measure.
package sampler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/perschulte/ecoci/pkg/types"
)

// DefaultInterval is the polling cadence for child process usage.
const DefaultInterval = 100 * time.Millisecond

// Fallback usage substituted when the child process cannot be launched,
// so downstream estimation still produces a result.
const (
	FallbackCPUPercent = 5.0
	FallbackRSS        = types.Bytes(50 * 1 << 20) // 50 MiB
)

// Sample is one poll tick of the child's resource usage. Samples are
// ephemeral: they are only averaged, never persisted.
type Sample struct {
	CPUPercent float64
	RSS        types.Bytes
}

// Trace is everything collected across one command execution. The
// duration is measured from just before launch to just after the child
// is reaped, and is authoritative regardless of how many samples were
// collected. Zero samples is a legal trace for short-lived commands.
type Trace struct {
	Samples   []Sample
	DurationS float64
}

// Sampler runs commands and collects usage traces. Each measurement
// should use its own Sampler; it keeps no state across runs.
type Sampler struct {
	interval time.Duration
	log      zerolog.Logger
}

// New returns a Sampler polling at the given interval.
// interval <= 0 selects DefaultInterval.
func New(interval time.Duration, log zerolog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{interval: interval, log: log}
}

// Run executes the command and samples it until it exits. The child's
// own stdio is inherited, not captured; its exit status is not part of
// the measurement. No timeout is imposed on the child: the sampler
// runs as long as the command does. Cancelling ctx stops the polling
// loop early but the child is still waited on to reap it.
//
// A launch failure does not abort the run: the trace degrades to one
// synthetic low-usage sample and the real (near-zero) elapsed time.
func (s *Sampler) Run(ctx context.Context, command []string) Trace {
	start := time.Now()

	cmd, err := s.launch(command)
	if err != nil {
		s.log.Warn().Err(err).Strs("command", command).
			Float64("cpu_pct", FallbackCPUPercent).Float64("rss_mb", FallbackRSS.MB()).
			Msg("command launch failed, substituting fallback sample")
		return Trace{
			Samples:   []Sample{{CPUPercent: FallbackCPUPercent, RSS: FallbackRSS}},
			DurationS: time.Since(start).Seconds(),
		}
	}

	samples := s.poll(ctx, cmd)

	return Trace{Samples: samples, DurationS: time.Since(start).Seconds()}
}

// launch starts the child without capturing its streams. The error is
// returned in-band so the caller makes the fallback decision.
func (s *Sampler) launch(command []string) (*exec.Cmd, error) {
	if len(command) == 0 {
		return nil, errors.New("sampler: empty command")
	}
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// poll ticks at the sampling interval concurrently with the child and
// stops when the child exits. Liveness is re-checked on every tick: a
// read that fails because the process is gone ends the loop cleanly
// (the poll/exit race is normal termination, not an error). The child
// is always waited on afterward so it is reaped on every path.
func (s *Sampler) poll(ctx context.Context, cmd *exec.Cmd) []Sample {
	var (
		samples []Sample
		wg      sync.WaitGroup
	)

	done := make(chan struct{})

	proc, perr := process.NewProcess(int32(cmd.Process.Pid))
	if perr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					cpu, err := proc.CPUPercent()
					if err != nil {
						return
					}
					mem, err := proc.MemoryInfo()
					if err != nil || mem == nil {
						return
					}
					samples = append(samples, Sample{
						CPUPercent: cpu,
						RSS:        types.ToBytes(mem.RSS),
					})
				}
			}
		}()
	} else {
		s.log.Warn().Err(perr).Int("pid", cmd.Process.Pid).
			Msg("cannot attach to child for sampling")
	}

	// The child's failure is its own business; waiting only reaps it
	// and pins down the end of the measurement window.
	_ = cmd.Wait()
	close(done)
	wg.Wait()

	return samples
}

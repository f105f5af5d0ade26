package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultTimeout is the wall-clock ceiling applied when a node declares none.
const DefaultTimeout = 300 * time.Second

const defaultSampleInterval = 10 * time.Millisecond

// Sandbox runs plugin entrypoints under per-execution resource bounds.
// Memory and CPU consumption are sampled from the process delta while the
// entrypoint runs; a breach cancels the execution context and surfaces a
// *Violation naming the limit.
type Sandbox struct {
	logger         *slog.Logger
	sampleInterval time.Duration
}

func New(logger *slog.Logger) *Sandbox {
	return &Sandbox{
		logger:         logger.With("module", "sandbox"),
		sampleInterval: defaultSampleInterval,
	}
}

// NewEnv builds the execution environment a plugin is handed. The returned
// cleanup removes any temp dir created for the execution.
func (s *Sandbox) NewEnv(limits models.ResourceLimits) (protocol.Env, func(), error) {
	env := protocol.Env{
		FilesystemMode: limits.FilesystemMode,
		NetworkAllowed: limits.NetworkAllowed,
	}

	if env.FilesystemMode == "" {
		env.FilesystemMode = models.FilesystemReadOnly
	}

	cleanup := func() {}

	if env.FilesystemMode == models.FilesystemTempDir {
		dir, err := os.MkdirTemp("", "probeflow-sandbox-")
		if err != nil {
			return protocol.Env{}, nil, err
		}

		env.TempDir = dir
		cleanup = func() { _ = os.RemoveAll(dir) }
	}

	return env, cleanup, nil
}

type executionResult struct {
	outputs map[string]any
	err     error
}

// Execute runs fn under the given limits and wall-clock timeout. On a limit
// breach the execution context is cancelled and a *Violation is returned; no
// partial outputs escape a terminated attempt.
func (s *Sandbox) Execute(
	ctx context.Context,
	limits models.ResourceLimits,
	timeout time.Duration,
	fn func(ctx context.Context) (map[string]any, error),
) (map[string]any, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	violations := make(chan *Violation, 1)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()

	if limits.MemoryMB > 0 || limits.CPUSeconds > 0 {
		go s.monitor(monitorCtx, limits, violations)
	}

	results := make(chan executionResult, 1)

	go func() {
		outputs, err := fn(execCtx)
		results <- executionResult{outputs: outputs, err: err}
	}()

	select {
	case v := <-violations:
		cancel()
		s.logger.Warn("Terminated execution on sandbox violation",
			"limit", v.Limit, "ceiling", v.Ceiling, "observed", v.Observed)

		return nil, v
	case res := <-results:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, s.wallClockViolation(timeout)
			}

			return nil, res.err
		}

		return res.outputs, nil
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, s.wallClockViolation(timeout)
		}

		return nil, execCtx.Err()
	}
}

func (s *Sandbox) wallClockViolation(timeout time.Duration) *Violation {
	return &Violation{
		Limit:    LimitWallClock,
		Ceiling:  timeout.Seconds(),
		Observed: timeout.Seconds(),
	}
}

// monitor samples process memory and CPU deltas until the execution finishes
// or a ceiling is crossed.
func (s *Sandbox) monitor(ctx context.Context, limits models.ResourceLimits, violations chan<- *Violation) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.logger.Warn("Resource monitor unavailable", "error", err)

		return
	}

	baselineRSS := currentRSS(proc)
	baselineCPU := currentCPU(proc)

	ticker := time.NewTicker(s.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if limits.MemoryMB > 0 {
				usedMB := float64(currentRSS(proc)-baselineRSS) / (1024 * 1024)
				if usedMB > float64(limits.MemoryMB) {
					violations <- &Violation{Limit: LimitMemory, Ceiling: float64(limits.MemoryMB), Observed: usedMB}

					return
				}
			}

			if limits.CPUSeconds > 0 {
				usedCPU := currentCPU(proc) - baselineCPU
				if usedCPU > float64(limits.CPUSeconds) {
					violations <- &Violation{Limit: LimitCPU, Ceiling: float64(limits.CPUSeconds), Observed: usedCPU}

					return
				}
			}
		}
	}
}

func currentRSS(proc *process.Process) int64 {
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}

	return int64(info.RSS)
}

func currentCPU(proc *process.Process) float64 {
	times, err := proc.Times()
	if err != nil || times == nil {
		return 0
	}

	return times.User + times.System
}

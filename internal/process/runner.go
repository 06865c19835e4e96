package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// FailureCode is reported when the child never ran (spawn failure) or did not
// exit normally (killed by a signal, deadline expiry).
const FailureCode = -1

const waitDelay = 5 * time.Second

// DefaultLogLimit is the number of characters of captured output kept by Summarize.
const DefaultLogLimit = 4000

// Command describes one external process invocation.
type Command struct {
	Bin  string   `json:"bin"`
	Args []string `json:"args"`
	// Dir is the working directory; empty means the parent's.
	Dir string `json:"-"`
	// Env holds KEY=VALUE overrides appended to the parent environment.
	Env []string `json:"-"`
}

// Result is the outcome of a process run. A Result is always returned,
// never an error.
type Result struct {
	Code       int    `json:"code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"durationMs"`
	TimedOut   bool   `json:"timedOut"`
}

// OK reports whether the process exited zero within its deadline.
func (r Result) OK() bool {
	return r.Code == 0 && !r.TimedOut
}

// Executor runs external commands.
type Executor interface {
	Run(ctx context.Context, cmd Command) Result
}

// Runner executes commands with an optional per-invocation deadline.
type Runner struct {
	logger zerolog.Logger
	// Timeout bounds every invocation. Zero disables the deadline.
	Timeout time.Duration
}

// NewRunner creates a Runner.
func NewRunner(logger zerolog.Logger, timeout time.Duration) *Runner {
	return &Runner{
		logger:  logger.With().Str("component", "process-runner").Logger(),
		Timeout: timeout,
	}
}

// Run spawns cmd, captures stdout and stderr in full and waits for exit.
func (r *Runner) Run(ctx context.Context, cmd Command) Result {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	res := r.run(ctx, cmd)
	res.DurationMs = time.Since(start).Milliseconds()
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.Code = FailureCode
	}

	r.logger.Debug().
		Str("bin", cmd.Bin).
		Int("code", res.Code).
		Int64("duration_ms", res.DurationMs).
		Bool("timed_out", res.TimedOut).
		Msg("process finished")

	return res
}

func (r *Runner) run(ctx context.Context, cmd Command) Result {
	var outBuf, errBuf bytes.Buffer

	c := exec.CommandContext(ctx, cmd.Bin, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	// Grandchildren holding the output pipes open must not outlive the deadline.
	c.WaitDelay = waitDelay

	r.logger.Debug().Str("bin", cmd.Bin).Int("args", len(cmd.Args)).Msg("starting process")

	res := Result{Code: 0}
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
		} else {
			res.Code = FailureCode
			if errBuf.Len() > 0 {
				errBuf.WriteString("\n")
			}
			errBuf.WriteString(err.Error())
		}
	}
	res.Stdout = outBuf.String()
	res.Stderr = errBuf.String()
	return res
}

// Summarize truncates text to max characters, marking the cut with "\n...".
func Summarize(text string, max int) string {
	if max <= 0 {
		max = DefaultLogLimit
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "\n..."
}

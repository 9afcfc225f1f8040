// Package sandbox executes untrusted, freshly generated scraper code as an
// isolated, time-bounded subprocess and classifies the outcome. Errors are
// always data: Execute returns a structured verdict, never raises.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailureMarker is emitted by the harness when the entry point raises. Its
// presence distinguishes "the code ran but produced no usable result" from
// "the process itself crashed".
const FailureMarker = "EXECUTION_ERROR"

// ErrorKind classifies a failed execution.
type ErrorKind string

const (
	// ErrorNone marks a successful run.
	ErrorNone ErrorKind = "none"
	// ErrorTimeout marks a run terminated at the wall-clock limit.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorRuntime marks a run whose entry point raised (marker present).
	ErrorRuntime ErrorKind = "runtime_failure"
	// ErrorProcess marks a run that died before the entry point produced a
	// result, e.g. an import or syntax error.
	ErrorProcess ErrorKind = "process_failure"
)

// Verdict is the structured outcome of one sandboxed execution. Captured
// output is always attached for diagnostics, regardless of outcome.
type Verdict struct {
	Success   bool          `json:"success"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ErrorKind ErrorKind     `json:"error_kind"`
	Duration  time.Duration `json:"duration"`
}

// Config controls the interpreter and isolation limits.
type Config struct {
	// Interpreter is the executable used to run candidate code.
	Interpreter string
	// Timeout is the hard wall-clock limit for one execution.
	Timeout time.Duration
	// WorkDir receives the temporary script files; os.TempDir when empty.
	WorkDir string
}

// Runner executes candidate scraper code under the configured limits.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Runner, applying defaults for zero config values.
func New(cfg Config, logger *zap.Logger) *Runner {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		logger: logger,
	}
}

// Execute strips any self-invocation block from code, wraps it with the
// harness, and runs it against testURL in its own process group. On
// timeout the process group is killed and reaped; an orphaned process is a
// defect this method must not leak.
func (r *Runner) Execute(ctx context.Context, code, testURL string) Verdict {
	wrapped := Wrap(code, testURL)

	scriptPath := filepath.Join(r.cfg.WorkDir, fmt.Sprintf("scraper_%s.py", uuid.NewString()))
	if err := os.WriteFile(scriptPath, []byte(wrapped), 0o600); err != nil {
		return Verdict{
			Success:   false,
			Stderr:    fmt.Sprintf("write sandbox script: %v", err),
			ErrorKind: ErrorProcess,
		}
	}
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove sandbox script",
				zap.String("path", scriptPath), zap.Error(err))
		}
	}()

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(r.cfg.Interpreter, scriptPath) // #nosec G204 -- interpreter comes from config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Own process group so the whole tree can be killed on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Verdict{
			Success:   false,
			Stderr:    fmt.Sprintf("start interpreter %s: %v", r.cfg.Interpreter, err),
			ErrorKind: ErrorProcess,
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(r.cfg.Timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		timedOut = true
	}

	if timedOut {
		r.kill(cmd)
		<-done // reap; the process must not outlive the verdict
		r.logger.Warn("sandbox execution timed out",
			zap.String("url", testURL), zap.Duration("limit", r.cfg.Timeout))
		return Verdict{
			Success:   false,
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			ErrorKind: ErrorTimeout,
			Duration:  time.Since(start),
		}
	}

	return r.classify(stdout.String(), stderr.String(), waitErr, time.Since(start))
}

func (r *Runner) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		r.logger.Warn("failed to kill sandbox process group",
			zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		_ = cmd.Process.Kill()
	}
}

func (r *Runner) classify(stdout, stderr string, waitErr error, elapsed time.Duration) Verdict {
	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderr = stderr + "\n" + waitErr.Error()
		}
	}

	markerPresent := bytes.Contains([]byte(stdout), []byte(FailureMarker))

	verdict := Verdict{
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: elapsed,
	}
	switch {
	case exitCode == 0 && !markerPresent:
		verdict.Success = true
		verdict.ErrorKind = ErrorNone
	case markerPresent:
		verdict.ErrorKind = ErrorRuntime
	default:
		verdict.ErrorKind = ErrorProcess
	}
	return verdict
}

// jsonStringLiteral quotes s as a JSON string with HTML escaping off, so
// query strings with & embed verbatim. json.Marshal would escape them.
func jsonStringLiteral(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Wrap strips any self-invocation block and appends the harness that
// invokes scrape(testURL) and serializes its result. The URL is embedded
// as a JSON string literal, which Python reads as the equivalent string.
func Wrap(code, testURL string) string {
	cleaned := stripSelfInvocation(code)
	quotedURL := jsonStringLiteral(testURL)

	return cleaned + "\n\n" +
		"if __name__ == '__main__':\n" +
		"    import json\n" +
		"    import sys\n" +
		"    entry = globals().get('scrape')\n" +
		"    if not callable(entry):\n" +
		"        print('missing required entry point: scrape', file=sys.stderr)\n" +
		"        sys.exit(1)\n" +
		"    try:\n" +
		"        result = entry(" + quotedURL + ")\n" +
		"        print(json.dumps(result, indent=2, ensure_ascii=False))\n" +
		"    except Exception as e:\n" +
		"        print(\"" + FailureMarker + ": \" + str(e))\n"
}

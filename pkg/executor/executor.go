// Package executor spawns external toolchain processes and exposes their
// output as a single ordered, line-oriented stream tagged by source.
//
// Every build backend and terminal session in anvil funnels through this
// package: it owns process group setup, line assembly, the idle-output
// watchdog, and idempotent teardown. Callers receive raw lines only; all
// interpretation happens in pkg/classify.
package executor

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/anvilide/core/command"
	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/process"
	"github.com/sirupsen/logrus"
)

// Source identifies which stream of the child process a line came from.
type Source string

const (
	SourceStdout Source = "stdout"
	SourceStderr Source = "stderr"
)

// Line is a single line of child process output, stripped of its trailing
// newline. Lines from stdout and stderr are merged into one stream; order
// within each source is preserved exactly.
type Line struct {
	Source Source
	Text   string
}

// Spec describes a process to spawn. Argv must be non-empty and Dir must
// name an existing directory. Env entries are overlaid on the parent
// environment, replacing variables of the same name.
type Spec struct {
	Dir  string
	Env  map[string]string
	Argv []string

	// IdleTimeout kills the process if no output line arrives on either
	// stream for the given duration. Zero disables the watchdog.
	IdleTimeout time.Duration
}

// Result is the final outcome of a process. Succeeded reports true only for
// a clean exit with status zero; a TimedOut or Killed process always fails
// even when the shell reports status zero after signal delivery.
type Result struct {
	ExitCode int
	TimedOut bool
	Killed   bool
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the process exited normally with status zero.
func (r Result) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0 && !r.TimedOut && !r.Killed
}

// Executor spawns processes through an injected command.Executor so tests
// can substitute fake toolchain binaries.
type Executor struct {
	cmds   command.Executor
	logger *logrus.Entry
}

// New returns an Executor backed by the real os/exec implementation.
func New() *Executor {
	return NewWithCommandExecutor(&command.RealExecutor{})
}

// NewWithCommandExecutor returns an Executor that creates commands through ce.
func NewWithCommandExecutor(ce command.Executor) *Executor {
	return &Executor{
		cmds:   ce,
		logger: logging.NewLogger("executor"),
	}
}

// Process is a running (or finished) child process. Consume Lines until it
// closes, then call Wait or Result for the outcome.
type Process struct {
	pid         int
	dir         string
	argv        []string
	startedAt   time.Time
	idleTimeout time.Duration

	cmd   *exec.Cmd
	lines chan Line
	done  chan struct{}

	killOnce sync.Once
	timedOut atomic.Bool
	killed   atomic.Bool

	mu     sync.Mutex
	result Result

	logger *logrus.Entry
}

// Spawn starts the process described by spec. The returned Process is
// already running; its line stream fills as output arrives. ctx cancellation
// kills the process group.
func (e *Executor) Spawn(ctx context.Context, spec Spec) (*Process, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "argv must not be empty")
	}
	if spec.Dir != "" {
		info, err := os.Stat(spec.Dir)
		if err != nil || !info.IsDir() {
			return nil, errors.New(errors.ErrCodeInvalidInput, "working directory does not exist: "+spec.Dir)
		}
	}

	cmd := e.cmds.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	// A dedicated process group lets Kill reach children the toolchain
	// forks (gradle daemons spawn workers, shells spawn pipelines).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.SpawnFailed(spec.Argv, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.SpawnFailed(spec.Argv, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.SpawnFailed(spec.Argv, err)
	}

	p := &Process{
		pid:         cmd.Process.Pid,
		dir:         spec.Dir,
		argv:        spec.Argv,
		startedAt:   time.Now(),
		idleTimeout: spec.IdleTimeout,
		cmd:       cmd,
		lines:     make(chan Line, 256),
		done:      make(chan struct{}),
		logger:    e.logger,
	}

	e.logger.WithFields(logrus.Fields{
		"pid":  p.pid,
		"argv": spec.Argv,
		"dir":  spec.Dir,
	}).Debug("Spawned process")

	activity := make(chan struct{}, 1)
	var readers sync.WaitGroup
	readers.Add(2)
	go p.readStream(stdout, SourceStdout, activity, &readers)
	go p.readStream(stderr, SourceStderr, activity, &readers)

	if spec.IdleTimeout > 0 {
		go p.watchIdle(spec.IdleTimeout, activity)
	}

	go p.awaitExit(&readers)

	return p, nil
}

// readStream assembles lines from one pipe and feeds the merged stream.
// Each delivered line also pokes the idle watchdog.
func (p *Process) readStream(r io.Reader, src Source, activity chan<- struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lines <- Line{Source: src, Text: scanner.Text()}
		select {
		case activity <- struct{}{}:
		default:
		}
	}
	if err := scanner.Err(); err != nil && err != io.ErrClosedPipe {
		p.logger.WithError(err).WithField("source", src).Debug("Stream read ended with error")
	}
}

// watchIdle kills the process group when no line arrives within timeout.
func (p *Process) watchIdle(timeout time.Duration, activity <-chan struct{}) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(timeout)
		case <-timer.C:
			p.timedOut.Store(true)
			p.logger.WithFields(logrus.Fields{
				"pid":     p.pid,
				"timeout": timeout,
			}).Warn("No output within idle timeout, killing process")
			p.Kill()
			return
		case <-p.done:
			return
		}
	}
}

// awaitExit waits for both readers to drain, then collects the exit status
// and closes the line stream.
func (p *Process) awaitExit(readers *sync.WaitGroup) {
	readers.Wait()
	err := p.cmd.Wait()

	res := Result{
		Duration: time.Since(p.startedAt),
		TimedOut: p.timedOut.Load(),
		Killed:   p.killed.Load(),
	}
	switch e := err.(type) {
	case nil:
		res.ExitCode = 0
	case *exec.ExitError:
		res.ExitCode = e.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = errors.Wrap(err, errors.ErrCodeCommandFailed, "process wait failed")
	}
	if res.TimedOut && res.Err == nil {
		res.Err = errors.CommandTimeout(strings.Join(p.argv, " "), p.idleTimeout.String())
	}

	p.mu.Lock()
	p.result = res
	p.mu.Unlock()

	close(p.lines)
	close(p.done)

	p.logger.WithFields(logrus.Fields{
		"pid":       p.pid,
		"exit_code": res.ExitCode,
		"timed_out": res.TimedOut,
		"duration":  res.Duration,
	}).Debug("Process exited")
}

// Lines returns the merged output stream. The channel closes after the
// process exits and all buffered output has been delivered.
func (p *Process) Lines() <-chan Line {
	return p.lines
}

// Done closes when the process has exited and its result is available.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its Result.
func (p *Process) Wait() Result {
	<-p.done
	return p.Result()
}

// Result returns the outcome. It is only meaningful after Done has closed;
// before that it returns the zero Result.
func (p *Process) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Kill terminates the process group. It is safe to call multiple times and
// from multiple goroutines; calls after exit are no-ops.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		p.killed.Store(true)
		// Negative PID signals the whole group created at spawn time.
		if err := syscall.Kill(-p.pid, syscall.SIGKILL); err != nil {
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
		}
		p.logger.WithField("pid", p.pid).Debug("Killed process group")
	})
}

// PID returns the operating system process ID.
func (p *Process) PID() int { return p.pid }

// Argv returns the command line the process was spawned with.
func (p *Process) Argv() []string { return p.argv }

// Dir returns the working directory the process was spawned in.
func (p *Process) Dir() string { return p.dir }

// StartedAt returns the spawn time.
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Alive reports whether the operating system process still exists.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return process.IsProcessAlive(p.pid)
	}
}

// mergeEnv overlays overrides on base (KEY=VALUE form), replacing entries
// with matching names. Override order is deterministic.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if _, ok := overrides[name]; ok {
			continue
		}
		merged = append(merged, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+overrides[k])
	}
	return merged
}

package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/logging"
	"github.com/anvilide/core/pkg/artifacts"
	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/executor"
	"github.com/anvilide/core/pkg/transcript"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const eventBuffer = 1024

// Dispatcher owns the build session registry. It is safe for concurrent
// use; sessions are mutated only through its methods.
type Dispatcher struct {
	exec          *executor.Executor
	idleTimeout   time.Duration
	transcriptDir string
	watchDebounce time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	logger *logrus.Entry
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIdleTimeout sets the no-output watchdog applied to every spawned
// process. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.idleTimeout = d }
}

// WithTranscriptDir makes the dispatcher persist each session's events as
// a transcript file under dir.
func WithTranscriptDir(dir string) Option {
	return func(disp *Dispatcher) { disp.transcriptDir = dir }
}

// WithExecutor substitutes the process executor, for tests.
func WithExecutor(e *executor.Executor) Option {
	return func(disp *Dispatcher) { disp.exec = e }
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:          executor.New(),
		sessions:      make(map[string]*Session),
		watchDebounce: 100 * time.Millisecond,
		logger:        logging.NewLogger("build"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewSession registers a fresh IDLE session and returns it.
func (d *Dispatcher) NewSession() *Session {
	s := &Session{
		id:     "build_" + uuid.NewString(),
		status: StatusIdle,
		events: make(chan classify.Event, eventBuffer),
	}
	d.mu.Lock()
	d.sessions[s.id] = s
	d.mu.Unlock()
	d.logger.WithField("session", s.id).Debug("Created build session")
	return s
}

// Get looks up a session by id.
func (d *Dispatcher) Get(id string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	return s, nil
}

// List snapshots every registered session.
func (d *Dispatcher) List() []Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Snapshot, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Remove drops a finished session from the registry. Removing a RUNNING
// session is rejected.
func (d *Dispatcher) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	if !ok {
		return errors.SessionNotFound(id)
	}
	if s.Status() == StatusRunning {
		return errors.SessionBusy(id)
	}
	delete(d.sessions, id)
	return nil
}

// Start begins the requested operation on a session. It rejects a session
// that already has a live process. The stage pipeline is resolved up
// front: an unsupported backend/operation combination returns
// INVALID_OPERATION and leaves the session IDLE, before any process is
// spawned. The run then proceeds asynchronously; the caller consumes
// Events until the channel closes.
func (d *Dispatcher) Start(ctx context.Context, id string, req Request) error {
	s, err := d.Get(id)
	if err != nil {
		return err
	}

	stages, err := d.stages(req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		return errors.SessionBusy(id)
	}
	if s.status.Terminal() {
		// Sessions are single-use; the event stream has already closed.
		s.mu.Unlock()
		return errors.New(errors.ErrCodeSessionClosed, "session already finished: "+id)
	}
	s.status = StatusRunning
	s.cancelled = false
	s.startedAt = time.Now()
	s.request = &req
	s.mu.Unlock()

	go d.run(ctx, s, req, stages)
	return nil
}

// Cancel kills the session's live process. The session terminates
// CANCELLED; cancelling a session with no live process is an error.
func (d *Dispatcher) Cancel(id string) error {
	s, err := d.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "session is not running: "+id)
	}
	s.cancelled = true
	proc := s.proc
	s.mu.Unlock()

	d.logger.WithField("session", id).Info("Cancelling build")
	if proc != nil {
		proc.Kill()
	}
	return nil
}

// stage is one resolved step of a run, invocation included.
type stage struct {
	adapter backend.Adapter
	label   string
	inv     backend.Invocation
}

// stages resolves the adapter pipeline and every stage's invocation for a
// request. Hybrid builds run the package-manager stage then the managed
// stage; hybrid dependency and cross-target operations route to cargo
// alone. Resolution happens before the session is touched, so an
// unsupported combination never spawns anything.
func (d *Dispatcher) stages(req Request) ([]stage, error) {
	var resolved []stage
	if req.Backend != backend.TypeHybrid {
		a, err := backend.ForType(req.Backend)
		if err != nil {
			return nil, err
		}
		resolved = []stage{{adapter: a, label: a.Name()}}
	} else {
		cargo := backend.NewCargoAdapter()
		gradle := backend.NewGradleAdapter()
		switch req.Operation {
		case backend.OpBuild, backend.OpClean, backend.OpTest:
			resolved = []stage{
				{adapter: cargo, label: "cargo stage"},
				{adapter: gradle, label: "gradle stage"},
			}
		case backend.OpAddDependency, backend.OpRemoveDependency, backend.OpCrossTargetBuild:
			resolved = []stage{{adapter: cargo, label: "cargo stage"}}
		default:
			return nil, errors.InvalidOperation("hybrid", string(req.Operation))
		}
	}

	for i := range resolved {
		inv, err := resolved[i].adapter.Invocation(req.Operation, req.ProjectDir, req.Params)
		if err != nil {
			return nil, err
		}
		resolved[i].inv = *inv
	}
	return resolved, nil
}

// run executes the stage pipeline and settles the session.
func (d *Dispatcher) run(ctx context.Context, s *Session, req Request, stages []stage) {
	log := d.logger.WithField("session", s.id)

	var tw *transcript.Writer
	if d.transcriptDir != "" {
		var err error
		if tw, err = transcript.NewWriter(d.transcriptDir, s.id); err != nil {
			log.WithError(err).Warn("Transcript disabled for session")
			tw = nil
		}
	}
	emit := func(ev classify.Event) {
		if tw != nil {
			_ = tw.Record(ev)
		}
		s.emit(ev)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	if w, err := artifacts.NewWatcher(req.ProjectDir, req.Backend, req.Params.Variant, req.Params.Target, d.watchDebounce, func(a artifacts.Artifact) {
		s.emitAsync(classify.Event{
			Kind:      classify.KindArtifact,
			Message:   "Generated: " + a.Path,
			Artifact:  a.Path,
			Timestamp: time.Now(),
		})
	}); err == nil {
		go w.Start(watchCtx)
	} else {
		log.WithError(err).Debug("Artifact watcher unavailable")
	}

	var collector classify.Collector
	result := Result{ExitCode: 0}
	failed := false
	errorLines := 0

	for i, st := range stages {
		if len(stages) > 1 {
			// Synthetic boundary so hybrid transcripts keep their stages
			// apart.
			emit(classify.Event{
				Kind:      classify.KindTask,
				Message:   fmt.Sprintf("Stage %d/%d: %s", i+1, len(stages), st.label),
				Timestamp: time.Now(),
			})
		}

		res, err := d.runStage(ctx, s, st, emit, &collector, &errorLines)
		if err != nil {
			emit(classify.Event{Kind: classify.KindError, Message: err.Error(), Timestamp: time.Now()})
			failed = true
			break
		}

		result.ExitCode = res.ExitCode
		cancelled := func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.cancelled
		}()
		if cancelled {
			failed = true
			break
		}
		if !res.Succeeded() {
			if res.TimedOut && res.Err != nil {
				emit(classify.Event{Kind: classify.KindError, Message: res.Err.Error(), Timestamp: time.Now()})
			} else {
				emit(classify.Event{
					Kind:      classify.KindError,
					Message:   fmt.Sprintf("%s failed with exit code %d", st.label, res.ExitCode),
					Timestamp: time.Now(),
				})
			}
			if i+1 < len(stages) {
				// Fail fast; the remaining stages never start.
				stageErr := errors.HybridStageFailed(st.label)
				log.WithError(stageErr).Warn("Hybrid stage failed")
				emit(classify.Event{
					Kind:      classify.KindInfo,
					Message:   fmt.Sprintf("Skipping %s: %s failed", stages[i+1].label, st.label),
					Timestamp: time.Now(),
				})
			}
			failed = true
			break
		}
	}

	stopWatch()

	errs, warns := collector.Finish()
	result.Errors = errs
	result.Warnings = warns
	// A clean exit with classified errors is still a failure.
	if errorLines > 0 {
		failed = true
	}

	s.mu.Lock()
	cancelled := s.cancelled
	s.proc = nil
	switch {
	case cancelled:
		s.status = StatusCancelled
	case failed:
		s.status = StatusFailed
	default:
		s.status = StatusSucceeded
	}
	result.Status = s.status
	result.Duration = time.Since(s.startedAt)
	s.mu.Unlock()

	if result.Status == StatusSucceeded && req.Operation != backend.OpClean {
		if arts, err := artifacts.Scan(req.ProjectDir, req.Backend, req.Params.Variant, req.Params.Target); err == nil {
			result.Artifacts = arts
			for _, a := range arts {
				emit(classify.Event{
					Kind:      classify.KindArtifact,
					Message:   "Generated: " + a.Path,
					Artifact:  a.Path,
					Timestamp: time.Now(),
				})
			}
		}
	}

	s.mu.Lock()
	s.result = &result
	s.mu.Unlock()

	s.closeEvents()
	if tw != nil {
		tw.Close()
	}
	log.WithFields(logrus.Fields{
		"status":   result.Status,
		"duration": result.Duration,
		"exitCode": result.ExitCode,
	}).Info("Build finished")
}

// runStage spawns one stage and streams its classified output.
func (d *Dispatcher) runStage(ctx context.Context, s *Session, st stage, emit func(classify.Event), collector *classify.Collector, errorLines *int) (executor.Result, error) {
	proc, err := d.exec.Spawn(ctx, executor.Spec{
		Dir:         st.inv.Dir,
		Env:         st.inv.Env,
		Argv:        st.inv.Argv,
		IdleTimeout: d.idleTimeout,
	})
	if err != nil {
		return executor.Result{}, err
	}

	s.mu.Lock()
	if s.cancelled {
		// Cancel landed between stages; do not let the new process run.
		s.mu.Unlock()
		proc.Kill()
	} else {
		s.proc = proc
		s.mu.Unlock()
	}

	family := st.adapter.Family()
	for line := range proc.Lines() {
		ev := classify.Classify(family, line)
		collector.Observe(ev)
		if ev.Kind == classify.KindError {
			*errorLines++
		}
		emit(ev)
	}
	return proc.Wait(), nil
}

// Package server provides the HTTP server for the anvil daemon.
//
// The daemon exposes build orchestration and terminal sessions to IDE
// frontends over a unix socket: plain JSON endpoints for state, and
// websocket endpoints for live event streams.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/backend"
	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/project"
	"github.com/anvilide/core/pkg/terminal"
)

// RunningConfig holds the active configuration being used by the daemon.
// This is exposed via the /api/config endpoint so clients can verify what
// config is active.
type RunningConfig struct {
	IdleTimeout   time.Duration `json:"idle_timeout"`
	TranscriptDir string        `json:"transcript_dir,omitempty"`
	Shell         string        `json:"shell,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	builds        *build.Dispatcher
	terminals     *terminal.Manager
	prober        *project.Prober
	runningConfig *RunningConfig
	upgrader      websocket.Upgrader
}

// New creates a new Server instance.
func New(logger *logrus.Entry, builds *build.Dispatcher, terminals *terminal.Manager) *Server {
	return &Server{
		logger:    logger,
		builds:    builds,
		terminals: terminals,
		prober:    project.NewProber(),
		upgrader: websocket.Upgrader{
			// The socket is local and mode 0600; no cross-origin callers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Handler returns the daemon's route table. Exposed separately so tests
// can drive it through httptest without a unix socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/project", s.handleProject)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)

	mux.HandleFunc("POST /api/builds", s.handleStartBuild)
	mux.HandleFunc("GET /api/builds", s.handleListBuilds)
	mux.HandleFunc("GET /api/builds/{id}", s.handleGetBuild)
	mux.HandleFunc("POST /api/builds/{id}/cancel", s.handleCancelBuild)
	mux.HandleFunc("DELETE /api/builds/{id}", s.handleRemoveBuild)
	mux.HandleFunc("GET /api/builds/{id}/events", s.handleBuildEvents)

	mux.HandleFunc("POST /api/terminals", s.handleCreateTerminal)
	mux.HandleFunc("GET /api/terminals", s.handleListTerminals)
	mux.HandleFunc("DELETE /api/terminals/{id}", s.handleCloseTerminal)
	mux.HandleFunc("GET /api/terminals/{id}/exec", s.handleTerminalExec)

	return mux
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps internal error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidOperation, errors.ErrCodeProjectInvalid:
		status = http.StatusBadRequest
	case errors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeSessionBusy, errors.ErrCodeSessionClosed:
		status = http.StatusConflict
	case errors.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}

// handleStatus returns toolchain versions and health checks.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"toolchains": s.prober.Status(),
		"health":     s.prober.CheckHealth(),
	})
}

// handleProject inspects the project at ?dir= and reports its detected
// backend type and manifest summary.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing dir parameter"))
		return
	}
	info, err := project.Inspect(dir)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.runningConfig)
}

type buildRequest struct {
	ProjectDir string `json:"project_dir"`
	Backend    string `json:"backend"`
	Operation  string `json:"operation"`
	Variant    string `json:"variant,omitempty"`
	Dependency string `json:"dependency,omitempty"`
	Version    string `json:"version,omitempty"`
	Target     string `json:"target,omitempty"`
}

// handleStartBuild creates a session and starts it. The response carries
// the session snapshot; events stream separately over the websocket
// endpoint.
func (s *Server) handleStartBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	sess := s.builds.NewSession()
	err := s.builds.Start(context.Background(), sess.ID(), build.Request{
		ProjectDir: req.ProjectDir,
		Backend:    backend.Type(req.Backend),
		Operation:  backend.Operation(req.Operation),
		Params: backend.Params{
			Variant:    req.Variant,
			Dependency: req.Dependency,
			Version:    req.Version,
			Target:     req.Target,
		},
	})
	if err != nil {
		_ = s.builds.Remove(sess.ID())
		writeError(w, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"session":   sess.ID(),
		"backend":   req.Backend,
		"operation": req.Operation,
	}).Info("Build started")
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.builds.List())
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	sess, err := s.builds.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCancelBuild(w http.ResponseWriter, r *http.Request) {
	if err := s.builds.Cancel(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemoveBuild(w http.ResponseWriter, r *http.Request) {
	if err := s.builds.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBuildEvents streams a session's classified events over a
// websocket. The stream ends with a "result" frame once the session
// reaches a terminal state. A session's event channel has a single
// consumer; the first connected client owns it.
func (s *Server) handleBuildEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.builds.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	for ev := range sess.Events() {
		if err := conn.WriteJSON(streamFrame{Type: "event", Event: &ev}); err != nil {
			s.logger.WithError(err).Debug("Build event client went away")
			return
		}
	}
	_ = conn.WriteJSON(streamFrame{Type: "result", Result: sess.Result()})
}

// streamFrame is one websocket message on an event stream.
type streamFrame struct {
	Type     string          `json:"type"` // event, result, exit
	Event    *classify.Event `json:"event,omitempty"`
	Result   *build.Result   `json:"result,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
}

type terminalCreateRequest struct {
	Cwd string `json:"cwd,omitempty"`
}

func (s *Server) handleCreateTerminal(w http.ResponseWriter, r *http.Request) {
	var req terminalCreateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
			return
		}
	}
	sess, err := s.terminals.Create(req.Cwd)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.WithField("session", sess.ID()).Info("Terminal created")
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleListTerminals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.terminals.List())
}

func (s *Server) handleCloseTerminal(w http.ResponseWriter, r *http.Request) {
	if err := s.terminals.Close(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type execRequest struct {
	Command string `json:"command"`
}

// handleTerminalExec upgrades to a websocket, reads one command frame,
// runs it in the session and streams the classified output back. The
// final frame reports the exit code.
func (s *Server) handleTerminalExec(w http.ResponseWriter, r *http.Request) {
	sess, err := s.terminals.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	var req execRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	events, err := s.terminals.Execute(r.Context(), sess.ID(), req.Command)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{
			"type":  "error",
			"error": err.Error(),
			"code":  string(errors.GetCode(err)),
		})
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(streamFrame{Type: "event", Event: &ev}); err != nil {
			// Client went away; the command keeps running in the session.
			for range events {
			}
			return
		}
	}
	_ = conn.WriteJSON(streamFrame{Type: "exit", ExitCode: sess.LastExit()})
}

package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anvilide/core/pkg/build"
	"github.com/anvilide/core/pkg/project"
	"github.com/anvilide/core/pkg/terminal"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a
// Unix socket. Event streams arrive over websocket connections on the
// same socket.
type RemoteClient struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	// Create HTTP client that dials Unix socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
	}

	dialer := &websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		HandshakeTimeout: 5 * time.Second,
	}

	return &RemoteClient{
		httpClient: client,
		dialer:     dialer,
		socketPath: socketPath,
	}, nil
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// wsURL is the dummy host for websocket dials over the socket.
const wsURL = "ws://unix"

// getJSON performs a GET and decodes the response into out.
func (c *RemoteClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns a non-2xx response into an error, preferring the
// daemon's JSON error body.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon: %s", body.Error)
	}
	return fmt.Errorf("daemon returned status %d", resp.StatusCode)
}

// Status returns toolchain versions and health probes from the daemon.
func (c *RemoteClient) Status(ctx context.Context) (project.ToolchainStatus, project.Health, error) {
	var out struct {
		Toolchains project.ToolchainStatus `json:"toolchains"`
		Health     project.Health          `json:"health"`
	}
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return project.ToolchainStatus{}, project.Health{}, err
	}
	return out.Toolchains, out.Health, nil
}

// InspectProject reports the detected project layout at dir.
func (c *RemoteClient) InspectProject(ctx context.Context, dir string) (*project.Info, error) {
	var info project.Info
	if err := c.getJSON(ctx, "/api/project?dir="+url.QueryEscape(dir), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// StartBuild submits the build and opens the event stream.
func (c *RemoteClient) StartBuild(ctx context.Context, spec BuildSpec) (build.Snapshot, <-chan Frame, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return build.Snapshot{}, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/builds", bytes.NewReader(payload))
	if err != nil {
		return build.Snapshot{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return build.Snapshot{}, nil, fmt.Errorf("failed to start build: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return build.Snapshot{}, nil, decodeError(resp)
	}

	var snap build.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return build.Snapshot{}, nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	frames, err := c.stream(ctx, "/api/builds/"+snap.ID+"/events", nil)
	if err != nil {
		return snap, nil, err
	}
	return snap, frames, nil
}

// ListBuilds returns snapshots of all known build sessions.
func (c *RemoteClient) ListBuilds(ctx context.Context) ([]build.Snapshot, error) {
	var snaps []build.Snapshot
	if err := c.getJSON(ctx, "/api/builds", &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// CancelBuild kills the session's live process.
func (c *RemoteClient) CancelBuild(ctx context.Context, id string) error {
	return c.post(ctx, "/api/builds/"+id+"/cancel", nil, nil)
}

// CreateTerminal opens an interactive session rooted at cwd.
func (c *RemoteClient) CreateTerminal(ctx context.Context, cwd string) (terminal.Info, error) {
	var info terminal.Info
	err := c.post(ctx, "/api/terminals", map[string]string{"cwd": cwd}, &info)
	return info, err
}

// ListTerminals returns all open terminal sessions.
func (c *RemoteClient) ListTerminals(ctx context.Context) ([]terminal.Info, error) {
	var infos []terminal.Info
	if err := c.getJSON(ctx, "/api/terminals", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// CloseTerminal discards the session.
func (c *RemoteClient) CloseTerminal(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", baseURL+"/api/terminals/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	return nil
}

// Exec runs one command in a terminal session over a websocket.
func (c *RemoteClient) Exec(ctx context.Context, id, command string) (<-chan Frame, error) {
	return c.stream(ctx, "/api/terminals/"+id+"/exec", map[string]string{"command": command})
}

// post performs a POST with an optional JSON body and decodes into out
// when out is non-nil.
func (c *RemoteClient) post(ctx context.Context, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// stream dials a websocket endpoint, optionally sends one initial JSON
// frame, and forwards incoming frames until the peer closes.
func (c *RemoteClient) stream(ctx context.Context, path string, initial interface{}) (<-chan Frame, error) {
	conn, _, err := c.dialer.DialContext(ctx, wsURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if initial != nil {
		if err := conn.WriteJSON(initial); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to send stream request: %w", err)
		}
	}

	ch := make(chan Frame, 64)
	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			select {
			case ch <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)

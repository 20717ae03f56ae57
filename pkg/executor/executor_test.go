package executor

import (
	"context"
	"testing"
	"time"

	"github.com/anvilide/core/errors"
)

func collect(p *Process) []Line {
	var lines []Line
	for line := range p.Lines() {
		lines = append(lines, line)
	}
	return lines
}

func TestSpawnMergedStream(t *testing.T) {
	e := New()
	p, err := e.Spawn(context.Background(), Spec{
		Dir:  t.TempDir(),
		Argv: []string{"/bin/sh", "-c", "echo one; echo two >&2; echo three"},
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	lines := collect(p)
	res := p.Wait()

	if !res.Succeeded() {
		t.Errorf("Result = %+v, want success", res)
	}
	var stdout, stderr []string
	for _, l := range lines {
		switch l.Source {
		case SourceStdout:
			stdout = append(stdout, l.Text)
		case SourceStderr:
			stderr = append(stderr, l.Text)
		}
	}
	if len(stdout) != 2 || stdout[0] != "one" || stdout[1] != "three" {
		t.Errorf("stdout lines = %v, want [one three] in order", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "two" {
		t.Errorf("stderr lines = %v, want [two]", stderr)
	}
}

func TestSpawnNonZeroExit(t *testing.T) {
	e := New()
	p, err := e.Spawn(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	collect(p)
	res := p.Wait()
	if res.Succeeded() {
		t.Error("Succeeded() = true for exit 3")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestSpawnValidation(t *testing.T) {
	e := New()

	if _, err := e.Spawn(context.Background(), Spec{}); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("empty argv: code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}

	_, err := e.Spawn(context.Background(), Spec{
		Dir:  "/nonexistent/anvil/workdir",
		Argv: []string{"true"},
	})
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("missing dir: code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	e := New()
	_, err := e.Spawn(context.Background(), Spec{
		Argv: []string{"anvil-no-such-binary-xyz"},
	})
	if errors.GetCode(err) != errors.ErrCodeSpawnFailed {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeSpawnFailed)
	}
}

func TestEnvOverride(t *testing.T) {
	e := New()
	p, err := e.Spawn(context.Background(), Spec{
		Env:  map[string]string{"ANVIL_TEST_VAR": "forged"},
		Argv: []string{"/bin/sh", "-c", "echo $ANVIL_TEST_VAR"},
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	lines := collect(p)
	p.Wait()
	if len(lines) != 1 || lines[0].Text != "forged" {
		t.Errorf("lines = %v, want single line 'forged'", lines)
	}
}

func TestKillIdempotent(t *testing.T) {
	e := New()
	p, err := e.Spawn(context.Background(), Spec{
		Argv: []string{"/bin/sh", "-c", "sleep 30"},
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	p.Kill()
	p.Kill()
	collect(p)
	res := p.Wait()
	p.Kill()

	if res.Succeeded() {
		t.Error("Succeeded() = true for killed process")
	}
	if !res.Killed {
		t.Error("Killed = false, want true")
	}
	if p.Alive() {
		t.Error("Alive() = true after kill and wait")
	}
}

func TestIdleTimeout(t *testing.T) {
	e := New()
	p, err := e.Spawn(context.Background(), Spec{
		Argv:        []string{"/bin/sh", "-c", "echo started; sleep 30"},
		IdleTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	collect(p)
	res := p.Wait()
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if res.Succeeded() {
		t.Error("Succeeded() = true for timed out process")
	}
	if errors.GetCode(res.Err) != errors.ErrCodeCommandTimeout {
		t.Errorf("Err code = %v, want %v", errors.GetCode(res.Err), errors.ErrCodeCommandTimeout)
	}
}

func TestContextCancelKills(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	p, err := e.Spawn(ctx, Spec{
		Argv: []string{"/bin/sh", "-c", "sleep 30"},
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	cancel()
	collect(p)
	res := p.Wait()
	if res.Succeeded() {
		t.Error("Succeeded() = true after context cancel")
	}
}

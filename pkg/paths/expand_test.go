package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := Expand("~/transcripts")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := filepath.Join(home, "transcripts")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("ANVIL_TEST_DIR", "/opt/anvil")

	got, err := Expand("$ANVIL_TEST_DIR/history.db")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "/opt/anvil/history.db" {
		t.Errorf("got %q, want /opt/anvil/history.db", got)
	}
}

func TestExpandRelativeBecomesAbsolute(t *testing.T) {
	got, err := Expand("transcripts")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %q", got)
	}
}

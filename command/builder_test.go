package command

import (
	"context"
	"testing"
	"time"
)

func TestValidateTaskName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple task", "assembleDebug", false},
		{"subproject path", "app:assembleRelease", false},
		{"with hyphen", "ktlint-check", false},
		{"empty name", "", true},
		{"starts with digit", "1task", true},
		{"shell metacharacters", "clean;rm", true},
		{"spaces", "assemble debug", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTaskName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTaskName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCrateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "serde", false},
		{"with underscore", "serde_json", false},
		{"with hyphen", "lazy-static", false},
		{"empty name", "", true},
		{"uppercase letters", "Serde", true},
		{"special characters", "serde@1", true},
		{"starts with hyphen", "-crate", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCrateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCrateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTargetTriple(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"android arm64", "aarch64-linux-android", false},
		{"android armv7", "armv7-linux-androideabi", false},
		{"x86_64", "x86_64-linux-android", false},
		{"empty", "", true},
		{"single word", "android", true},
		{"injection", "aarch64-linux-android;id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTargetTriple(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTargetTriple(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"group artifact", "androidx.core:core-ktx", false},
		{"full coordinate", "androidx.core:core-ktx:1.12.0", false},
		{"empty", "", true},
		{"single segment", "core-ktx", true},
		{"too many segments", "a:b:c:d", true},
		{"shell metacharacters", "a:b;rm -rf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCoordinate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCoordinate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()

	if err := validateDirectory(dir); err != nil {
		t.Errorf("validateDirectory(%q) unexpected error: %v", dir, err)
	}
	if err := validateDirectory(dir + "/missing"); err == nil {
		t.Error("validateDirectory should fail for a missing directory")
	}
	if err := validateDirectory(""); err == nil {
		t.Error("validateDirectory should fail for an empty path")
	}
}

func TestBuildAndTimeout(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if cmd.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cmd.timeout)
	}

	cmd = cmd.WithTimeout(time.Hour)
	if cmd.timeout != MaxTimeout {
		t.Errorf("WithTimeout should cap at MaxTimeout, got %v", cmd.timeout)
	}

	if _, err := sb.Build(context.Background(), ""); err == nil {
		t.Error("Build should reject an empty command name")
	}

	if err := sb.Validate("unknown", "x"); err == nil {
		t.Error("Validate should fail for unknown argument types")
	}
}

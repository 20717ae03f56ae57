package backend

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/anvilide/core/errors"
)

func TestGradleInvocations(t *testing.T) {
	dir := t.TempDir()
	a := NewGradleAdapter()

	tests := []struct {
		name     string
		op       Operation
		params   Params
		wantArgv []string
		wantCode errors.ErrorCode
	}{
		{"debug build", OpBuild, Params{}, []string{"gradle", "assembleDebug", "--console=plain"}, ""},
		{"release build", OpBuild, Params{Variant: "release"}, []string{"gradle", "assembleRelease", "--console=plain"}, ""},
		{"custom task", OpBuild, Params{Variant: "bundleRelease"}, []string{"gradle", "bundleRelease", "--console=plain"}, ""},
		{"clean", OpClean, Params{}, []string{"gradle", "clean", "--console=plain"}, ""},
		{"test", OpTest, Params{}, []string{"gradle", "test", "--console=plain"}, ""},
		{"extra args", OpBuild, Params{ExtraArgs: []string{"--stacktrace"}}, []string{"gradle", "assembleDebug", "--console=plain", "--stacktrace"}, ""},
		{"add dependency rejected", OpAddDependency, Params{Dependency: "x"}, nil, errors.ErrCodeInvalidOperation},
		{"remove dependency rejected", OpRemoveDependency, Params{Dependency: "x"}, nil, errors.ErrCodeInvalidOperation},
		{"cross target rejected", OpCrossTargetBuild, Params{Target: "aarch64-linux-android"}, nil, errors.ErrCodeInvalidOperation},
		{"injection rejected", OpBuild, Params{Variant: "assembleDebug; rm -rf /"}, nil, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := a.Invocation(tt.op, dir, tt.params)
			if tt.wantCode != "" {
				if errors.GetCode(err) != tt.wantCode {
					t.Fatalf("error code = %v, want %v", errors.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Invocation() error = %v", err)
			}
			if !reflect.DeepEqual(inv.Argv, tt.wantArgv) {
				t.Errorf("argv = %v, want %v", inv.Argv, tt.wantArgv)
			}
			if inv.Dir != dir {
				t.Errorf("dir = %q, want %q", inv.Dir, dir)
			}
		})
	}
}

func TestGradleWrapperPreferred(t *testing.T) {
	dir := t.TempDir()
	wrapper := filepath.Join(dir, "gradlew")
	if err := os.WriteFile(wrapper, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := NewGradleAdapter()
	inv, err := a.Invocation(OpBuild, dir, Params{})
	if err != nil {
		t.Fatalf("Invocation() error = %v", err)
	}
	if inv.Argv[0] != "./gradlew" {
		t.Errorf("argv[0] = %q, want ./gradlew", inv.Argv[0])
	}

	info, err := os.Stat(wrapper)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("wrapper not made executable")
	}
}

func TestCargoInvocations(t *testing.T) {
	dir := t.TempDir()
	a := NewCargoAdapter()

	tests := []struct {
		name     string
		op       Operation
		params   Params
		wantArgv []string
		wantCode errors.ErrorCode
	}{
		{"debug build", OpBuild, Params{}, []string{"cargo", "build"}, ""},
		{"release build", OpBuild, Params{Variant: "release"}, []string{"cargo", "build", "--release"}, ""},
		{"clean", OpClean, Params{}, []string{"cargo", "clean"}, ""},
		{"test", OpTest, Params{}, []string{"cargo", "test"}, ""},
		{"add", OpAddDependency, Params{Dependency: "serde"}, []string{"cargo", "add", "serde"}, ""},
		{"add pinned", OpAddDependency, Params{Dependency: "serde", Version: "1.0.200"}, []string{"cargo", "add", "serde@1.0.200"}, ""},
		{"remove", OpRemoveDependency, Params{Dependency: "serde"}, []string{"cargo", "remove", "serde"}, ""},
		{"cross target", OpCrossTargetBuild, Params{Target: "aarch64-linux-android", Variant: "release"}, []string{"cargo", "build", "--target", "aarch64-linux-android", "--release"}, ""},
		{"bad crate name", OpAddDependency, Params{Dependency: "Serde!!"}, nil, errors.ErrCodeInvalidInput},
		{"bad triple", OpCrossTargetBuild, Params{Target: "not a triple"}, nil, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := a.Invocation(tt.op, dir, tt.params)
			if tt.wantCode != "" {
				if errors.GetCode(err) != tt.wantCode {
					t.Fatalf("error code = %v, want %v", errors.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Invocation() error = %v", err)
			}
			if !reflect.DeepEqual(inv.Argv, tt.wantArgv) {
				t.Errorf("argv = %v, want %v", inv.Argv, tt.wantArgv)
			}
		})
	}
}

func TestNativeInvocations(t *testing.T) {
	dir := t.TempDir()
	a := NewNativeAdapter()

	inv, err := a.Invocation(OpBuild, dir, Params{Variant: "release"})
	if err != nil {
		t.Fatalf("Invocation() error = %v", err)
	}
	want := []string{"ndk-build", "APP_OPTIM=release"}
	if !reflect.DeepEqual(inv.Argv, want) {
		t.Errorf("argv = %v, want %v", inv.Argv, want)
	}

	inv, err = a.Invocation(OpCrossTargetBuild, dir, Params{Target: "aarch64-linux-android"})
	if err != nil {
		t.Fatalf("cross target error = %v", err)
	}
	want = []string{"ndk-build", "APP_OPTIM=debug", "APP_ABI=arm64-v8a"}
	if !reflect.DeepEqual(inv.Argv, want) {
		t.Errorf("argv = %v, want %v", inv.Argv, want)
	}

	for _, op := range []Operation{OpTest, OpAddDependency, OpRemoveDependency} {
		if _, err := a.Invocation(op, dir, Params{Dependency: "x"}); errors.GetCode(err) != errors.ErrCodeInvalidOperation {
			t.Errorf("%s: code = %v, want %v", op, errors.GetCode(err), errors.ErrCodeInvalidOperation)
		}
	}
}

func TestForType(t *testing.T) {
	for _, tt := range []struct {
		typ  Type
		name string
	}{
		{TypeGradle, "gradle"},
		{TypeCargo, "cargo"},
		{TypeNative, "native-driver"},
	} {
		a, err := ForType(tt.typ)
		if err != nil {
			t.Fatalf("ForType(%s) error = %v", tt.typ, err)
		}
		if a.Name() != tt.name {
			t.Errorf("ForType(%s).Name() = %q, want %q", tt.typ, a.Name(), tt.name)
		}
	}
	if _, err := ForType(Type("maven")); err == nil {
		t.Error("ForType(maven) succeeded, want error")
	}
	if _, err := ForType(TypeHybrid); err == nil {
		t.Error("ForType(hybrid) succeeded, want error; hybrid is sequenced by the dispatcher")
	}
}

func TestParseTaskListing(t *testing.T) {
	listing := `
> Task :tasks

------------------------------------------------------------
All tasks runnable from root project 'app'
------------------------------------------------------------

Build tasks
-----------
assembleDebug - Assembles the debug build.
assembleRelease - Assembles the release build.

Help tasks
----------
help - Displays a help message.
tasks - Displays the tasks runnable from root project.

BUILD SUCCESSFUL in 2s
`
	tasks := parseTaskListing(listing)
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d (%v), want 2", len(tasks), tasks)
	}
	if tasks[0].Name != "assembleDebug" || tasks[0].Description != "Assembles the debug build." {
		t.Errorf("task[0] = %+v", tasks[0])
	}
}

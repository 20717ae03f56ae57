// Package backend constructs toolchain invocations per backend family.
//
// Adapters never spawn processes. They turn (operation, project dir,
// parameters) into an argument vector plus working directory and name the
// classifier rule table for their output. The dispatcher in pkg/build feeds
// the invocation to the process executor.
package backend

import (
	"github.com/anvilide/core/command"
	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/classify"
)

// Operation is one of the build actions an adapter can express.
type Operation string

const (
	OpBuild            Operation = "build"
	OpClean            Operation = "clean"
	OpTest             Operation = "test"
	OpAddDependency    Operation = "addDependency"
	OpRemoveDependency Operation = "removeDependency"
	OpCrossTargetBuild Operation = "crossTargetBuild"
)

// Type is the closed set of selectable backends. Hybrid is not an adapter;
// the dispatcher sequences the package-manager stage and the managed stage
// itself.
type Type string

const (
	TypeGradle Type = "gradle"
	TypeCargo  Type = "cargo"
	TypeHybrid Type = "hybrid"
	TypeNative Type = "native-driver"
)

// Params carries the per-operation inputs. Unused fields are ignored by
// adapters that do not need them.
type Params struct {
	// Variant is the build type, "debug" or "release". Empty means debug.
	Variant string

	// Dependency names a crate (cargo) for the dependency operations.
	Dependency string
	// Version optionally pins the dependency.
	Version string

	// Target is the target triple for cross-target builds.
	Target string

	// ExtraArgs are appended verbatim after the constructed arguments.
	ExtraArgs []string
}

// Invocation is a fully constructed toolchain command line.
type Invocation struct {
	Argv []string
	Dir  string
	Env  map[string]string
}

// Adapter knows how one toolchain family expresses the build operations.
type Adapter interface {
	// Name is the stable adapter identifier used in configuration.
	Name() string

	// Family selects the classifier rule table for this adapter's output.
	Family() classify.Family

	// Invocation builds the command line for op, or fails with
	// INVALID_OPERATION when the family does not support it.
	Invocation(op Operation, projectDir string, p Params) (*Invocation, error)
}

// ForType returns the adapter for a backend type. TypeHybrid has no single
// adapter; callers sequence TypeCargo then TypeGradle.
func ForType(t Type) (Adapter, error) {
	switch t {
	case TypeGradle:
		return NewGradleAdapter(), nil
	case TypeCargo:
		return NewCargoAdapter(), nil
	case TypeNative:
		return NewNativeAdapter(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown backend type: "+string(t))
	}
}

// validator shared by all adapters; wraps command.SafeBuilder argument
// validation with the package error taxonomy.
var builder = command.NewSafeBuilder()

func validate(argType, value, adapter string, op Operation) error {
	if err := builder.Validate(argType, value); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid argument for "+adapter+" "+string(op))
	}
	return nil
}

func invalidOp(adapter string, op Operation) error {
	return errors.InvalidOperation(adapter, string(op))
}

package backend

import (
	"github.com/anvilide/core/pkg/classify"
)

// NativeAdapter is the experimental ndk-build driver. It covers build,
// clean and cross-target builds; tests and dependency management have no
// equivalent in the NDK build system.
type NativeAdapter struct{}

// NewNativeAdapter returns the native-driver adapter.
func NewNativeAdapter() *NativeAdapter { return &NativeAdapter{} }

func (a *NativeAdapter) Name() string            { return "native-driver" }
func (a *NativeAdapter) Family() classify.Family { return classify.FamilyNative }

// abiForTriple maps rust-style target triples to NDK ABI names.
var abiForTriple = map[string]string{
	"aarch64-linux-android":   "arm64-v8a",
	"armv7-linux-androideabi": "armeabi-v7a",
	"i686-linux-android":      "x86",
	"x86_64-linux-android":    "x86_64",
}

func (a *NativeAdapter) Invocation(op Operation, projectDir string, p Params) (*Invocation, error) {
	optim := "APP_OPTIM=debug"
	if p.Variant == "release" {
		optim = "APP_OPTIM=release"
	}

	var argv []string
	switch op {
	case OpBuild:
		argv = []string{"ndk-build", optim}
	case OpClean:
		argv = []string{"ndk-build", "clean"}
	case OpCrossTargetBuild:
		if err := validate("targetTriple", p.Target, a.Name(), op); err != nil {
			return nil, err
		}
		abi, ok := abiForTriple[p.Target]
		if !ok {
			return nil, invalidOp(a.Name(), op)
		}
		argv = []string{"ndk-build", optim, "APP_ABI=" + abi}
	case OpTest, OpAddDependency, OpRemoveDependency:
		return nil, invalidOp(a.Name(), op)
	default:
		return nil, invalidOp(a.Name(), op)
	}

	argv = append(argv, p.ExtraArgs...)
	return &Invocation{Argv: argv, Dir: projectDir}, nil
}

package backend

import (
	"github.com/anvilide/core/pkg/classify"
)

// CargoAdapter drives the package-manager family. All six operations are
// expressible on cargo's command line, including dependency edits via
// `cargo add` / `cargo remove` and cross-target builds via --target.
type CargoAdapter struct{}

// NewCargoAdapter returns the package-manager adapter.
func NewCargoAdapter() *CargoAdapter { return &CargoAdapter{} }

func (a *CargoAdapter) Name() string            { return "cargo" }
func (a *CargoAdapter) Family() classify.Family { return classify.FamilyCargo }

func (a *CargoAdapter) Invocation(op Operation, projectDir string, p Params) (*Invocation, error) {
	release := p.Variant == "release"

	var argv []string
	switch op {
	case OpBuild:
		argv = []string{"cargo", "build"}
		if release {
			argv = append(argv, "--release")
		}
	case OpClean:
		argv = []string{"cargo", "clean"}
	case OpTest:
		argv = []string{"cargo", "test"}
		if release {
			argv = append(argv, "--release")
		}
	case OpAddDependency:
		if err := validate("crateName", p.Dependency, a.Name(), op); err != nil {
			return nil, err
		}
		spec := p.Dependency
		if p.Version != "" {
			spec += "@" + p.Version
		}
		argv = []string{"cargo", "add", spec}
	case OpRemoveDependency:
		if err := validate("crateName", p.Dependency, a.Name(), op); err != nil {
			return nil, err
		}
		argv = []string{"cargo", "remove", p.Dependency}
	case OpCrossTargetBuild:
		if err := validate("targetTriple", p.Target, a.Name(), op); err != nil {
			return nil, err
		}
		argv = []string{"cargo", "build", "--target", p.Target}
		if release {
			argv = append(argv, "--release")
		}
	default:
		return nil, invalidOp(a.Name(), op)
	}

	argv = append(argv, p.ExtraArgs...)
	return &Invocation{Argv: argv, Dir: projectDir}, nil
}

package backend

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anvilide/core/errors"
	"github.com/anvilide/core/pkg/classify"
	"github.com/anvilide/core/pkg/executor"
)

// GradleAdapter drives the managed build tool. Dependency operations are
// not expressible on gradle's command line; they go through pkg/gradlefile,
// so this adapter rejects them. Cross-target builds are undefined for the
// managed family.
type GradleAdapter struct{}

// NewGradleAdapter returns the managed-build-tool adapter.
func NewGradleAdapter() *GradleAdapter { return &GradleAdapter{} }

func (a *GradleAdapter) Name() string            { return "gradle" }
func (a *GradleAdapter) Family() classify.Family { return classify.FamilyGradle }

// gradleBinary prefers the project wrapper when present, restoring its
// execute bit since archive extraction on-device tends to drop it.
func gradleBinary(projectDir string) string {
	wrapper := filepath.Join(projectDir, "gradlew")
	if info, err := os.Stat(wrapper); err == nil && !info.IsDir() {
		if info.Mode()&0o111 == 0 {
			_ = os.Chmod(wrapper, info.Mode()|0o755)
		}
		return "./gradlew"
	}
	return "gradle"
}

func (a *GradleAdapter) Invocation(op Operation, projectDir string, p Params) (*Invocation, error) {
	bin := gradleBinary(projectDir)

	var task string
	switch op {
	case OpBuild:
		switch p.Variant {
		case "", "debug":
			task = "assembleDebug"
		case "release":
			task = "assembleRelease"
		default:
			task = p.Variant
		}
	case OpClean:
		task = "clean"
	case OpTest:
		task = "test"
	case OpAddDependency, OpRemoveDependency:
		return nil, invalidOp(a.Name(), op)
	case OpCrossTargetBuild:
		return nil, invalidOp(a.Name(), op)
	default:
		return nil, invalidOp(a.Name(), op)
	}

	if err := validate("taskName", task, a.Name(), op); err != nil {
		return nil, err
	}

	// --console=plain keeps output stable for the rule table.
	argv := append([]string{bin, task, "--console=plain"}, p.ExtraArgs...)
	return &Invocation{Argv: argv, Dir: projectDir}, nil
}

// GradleTask is one entry from the task listing.
type GradleTask struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

// GradleTasks enumerates the runnable tasks of a project by parsing
// `tasks --all --console=plain` output. The help and tasks meta-tasks are
// skipped.
func GradleTasks(ctx context.Context, e *executor.Executor, projectDir string) ([]GradleTask, error) {
	bin := gradleBinary(projectDir)
	p, err := e.Spawn(ctx, executor.Spec{
		Dir:  projectDir,
		Argv: []string{bin, "tasks", "--all", "--console=plain"},
	})
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	for line := range p.Lines() {
		if line.Source == executor.SourceStdout {
			out.WriteString(line.Text)
			out.WriteByte('\n')
		}
	}
	res := p.Wait()
	if !res.Succeeded() {
		if res.Err != nil {
			return nil, res.Err
		}
		return nil, errors.CommandFailed(bin+" tasks", fmt.Errorf("exit code %d", res.ExitCode))
	}
	return parseTaskListing(out.String()), nil
}

// parseTaskListing walks the plain-console listing. Tasks appear after the
// "All tasks runnable from root project" banner, grouped under dashed
// headers, one "name - description" per line.
func parseTaskListing(text string) []GradleTask {
	var tasks []GradleTask
	group := "Other"
	inSection := false
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "All tasks runnable from root project") {
			inSection = true
			continue
		}
		if !inSection || strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasSuffix(line, "tasks") && strings.Contains(line, "----") {
			if first := strings.Fields(line); len(first) > 0 {
				group = first[0]
			}
			continue
		}
		name, desc, found := strings.Cut(line, " - ")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "help" || name == "tasks" {
			continue
		}
		tasks = append(tasks, GradleTask{Name: name, Description: strings.TrimSpace(desc), Group: group})
	}
	return tasks
}

package classify

import (
	"time"

	"github.com/anvilide/core/pkg/executor"
)

// Classify tags one line of output with a semantic kind using the rule
// table for family. Unknown families fall back to the shell table, and a
// line no rule matches is INFO, never dropped.
func Classify(family Family, line executor.Line) Event {
	table, ok := tables[family]
	if !ok {
		table = tables[FamilyShell]
	}

	ev := Event{
		Kind:      KindInfo,
		Message:   line.Text,
		Source:    string(line.Source),
		Timestamp: time.Now(),
	}

	stderr := line.Source == executor.SourceStderr
	for _, r := range table {
		if r.match(stderr, line.Text) {
			ev.Kind = r.kind
			if r.extract != nil {
				ev.Artifact = r.extract(line.Text)
			}
			break
		}
	}

	if ev.Kind == KindError || ev.Kind == KindWarning {
		ev.Diag = ParseDiagnostic(line.Text)
	}
	return ev
}

// Families reports the known backend families, useful for validation at
// configuration boundaries.
func Families() []Family {
	return []Family{FamilyGradle, FamilyCargo, FamilyNative, FamilyShell}
}

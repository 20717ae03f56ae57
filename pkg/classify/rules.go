package classify

import (
	"regexp"
	"strings"
)

// rule maps a line predicate to an event kind. Tables are ordered; the
// first match wins.
type rule struct {
	match   func(stderr bool, text string) bool
	kind    Kind
	extract func(text string) string
}

func prefix(p string, k Kind) rule {
	return rule{
		match: func(_ bool, text string) bool { return strings.HasPrefix(text, p) },
		kind:  k,
	}
}

func trimmedPrefix(p string, k Kind) rule {
	return rule{
		match: func(_ bool, text string) bool { return strings.HasPrefix(strings.TrimSpace(text), p) },
		kind:  k,
	}
}

func contains(s string, k Kind) rule {
	return rule{
		match: func(_ bool, text string) bool { return strings.Contains(text, s) },
		kind:  k,
	}
}

func containsFold(s string, k Kind) rule {
	lower := strings.ToLower(s)
	return rule{
		match: func(_ bool, text string) bool { return strings.Contains(strings.ToLower(text), lower) },
		kind:  k,
	}
}

func onStderr(k Kind) rule {
	return rule{
		match: func(stderr bool, _ string) bool { return stderr },
		kind:  k,
	}
}

var artifactRe = regexp.MustCompile(`(\S+\.(?:apk|aab|so|dylib|a|rlib|jar))\b`)

// artifactPath matches lines that name a produced binary by path. The
// dispatcher also emits ARTIFACT events from filesystem scans; this rule
// only covers toolchains that print the output path themselves.
func artifactPath() rule {
	return rule{
		match: func(_ bool, text string) bool {
			return artifactRe.MatchString(text) &&
				(strings.Contains(text, "build/outputs/") || strings.Contains(text, "target/"))
		},
		kind:    KindArtifact,
		extract: func(text string) string { return artifactRe.FindString(text) },
	}
}

// tables holds one ordered rule list per backend family.
var tables = map[Family][]rule{
	// Gradle runs with --console=plain, so markers are stable text.
	FamilyGradle: {
		contains("BUILD SUCCESSFUL", KindSuccess),
		contains("BUILD FAILED", KindError),
		prefix("> Task :", KindTask),
		prefix("FAILURE:", KindError),
		artifactPath(),
		prefix("e: ", KindError),
		prefix("w: ", KindWarning),
		containsFold("error:", KindError),
		containsFold("warning:", KindWarning),
		contains("Deprecated Gradle features", KindWarning),
	},
	FamilyCargo: {
		trimmedPrefix("error[", KindError),
		trimmedPrefix("error:", KindError),
		trimmedPrefix("warning:", KindWarning),
		trimmedPrefix("Finished", KindSuccess),
		trimmedPrefix("Compiling", KindTask),
		trimmedPrefix("Checking", KindTask),
		trimmedPrefix("Building", KindTask),
		trimmedPrefix("Running", KindTask),
		artifactPath(),
		contains("test result: FAILED", KindError),
		contains("test result: ok", KindSuccess),
	},
	FamilyNative: {
		containsFold("error:", KindError),
		contains("undefined reference", KindError),
		prefix("ld:", KindError),
		prefix("collect2:", KindError),
		containsFold("warning:", KindWarning),
		trimmedPrefix("[", KindTask),
		artifactPath(),
		contains("build complete", KindSuccess),
	},
	// Interactive shell output carries no toolchain markers, so the
	// stream itself is the strongest signal: stderr leans ERROR.
	FamilyShell: {
		containsFold("command not found", KindError),
		containsFold("permission denied", KindError),
		containsFold("no such file or directory", KindError),
		containsFold("warning:", KindWarning),
		onStderr(KindError),
	},
}

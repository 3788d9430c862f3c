package version

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/mod/semver"
)

// Build-time variables (set via ldflags during CI/CD builds)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func PrintVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Tusk Harness (version: %s)\n", Version)
	if BuildTime != "unknown" {
		_, _ = fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	}
	if GitCommit != "unknown" {
		_, _ = fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	}
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// Supports reports whether the running build satisfies the minimum version a
// scenario file asks for. Development builds support everything.
func Supports(minimum string) (bool, error) {
	if minimum == "" {
		return true, nil
	}
	want := canonical(minimum)
	if want == "" {
		return false, fmt.Errorf("invalid version %q", minimum)
	}
	current := canonical(Version)
	if current == "" {
		return true, nil
	}
	return semver.Compare(current, want) >= 0, nil
}

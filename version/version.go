// Package version stamps the build identity reported by -version and
// folded into startup logs, so a report of a stuck cyclic loop can be
// tied back to the exact binary that produced it.
package version

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

const (
	Major = 0
	Minor = 1
	Point = 0
)

// Commit is the git commit the binary was built from. Left as
// "unknown" for a plain `go build`; release builds set it with
// -ldflags "-X github.com/ecatcyclic/ecatmgr/version.Commit=...".
var Commit = "unknown"

// buildDate is fixed at the point this fieldbus manager's versioning
// scheme was cut in; Point bumps track fixes since.
var buildDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// String returns the dotted release version, e.g. "0.1.0".
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Point)
}

// Print writes the release version, commit, build date, and Go
// runtime identity to wtr. Called from -version and once at process
// startup ahead of PrintOSInfo, since a kernel-version mismatch report
// is useless without knowing which binary produced it.
func Print(wtr io.Writer) {
	fmt.Fprintf(wtr, "Version:\t%s\n", String())
	fmt.Fprintf(wtr, "Commit:\t\t%s\n", Commit)
	fmt.Fprintf(wtr, "BuildDate:\t%s\n", buildDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(wtr, "Go runtime:\t%s\n", runtime.Version())
}

// Package version holds build information set through ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Example: go build -ldflags="-X github.com/gliv-dev/gliv/pkg/version.Version=v0.3.0"
var (
	Version   = "v0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns a single-line version string.
func Info() string {
	commitShort := Commit
	if len(commitShort) > 7 {
		commitShort = commitShort[:7]
	}
	return fmt.Sprintf("gliv %s (commit: %s, built: %s, go: %s)",
		Version, commitShort, BuildDate, runtime.Version())
}

// Full returns the multi-line verbose output.
func Full() string {
	return fmt.Sprintf(`gliv %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s`,
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

package common

import (
	"fmt"
	"runtime"
)

// Stamped at build time:
//
//	go build -ldflags "-X github.com/ternarybob/scribe/internal/common.Version=1.2.0 -X ...Commit=abc123 -X ...BuildDate=2025-01-01"
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// GetVersion returns the release version
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with commit, build date and Go runtime
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)", Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

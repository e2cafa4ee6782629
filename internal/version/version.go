// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/semsearch/internal/version.Version=v0.3.0"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for `semsearch version` and logs.
func String() string {
	return fmt.Sprintf("semsearch %s (commit %s, built %s)", Version, Commit, Date)
}

package buildinfo

import "fmt"

// Set via -ldflags at build time, e.g.
//
//	-X 'github.com/m3rciful/mediabot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/mediabot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/mediabot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// Summary renders version, commit and date as a single line.
func Summary() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}

package buildinfo

import "fmt"

// Set at link time:
//
//	-X 'github.com/m3rciful/serverhealth/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/serverhealth/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/serverhealth/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version reports the release tag of the binary.
	Version = "dev"
	// Commit reports the git commit the binary was built from.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a one-line build description for the version command and startup log.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, Date)
}

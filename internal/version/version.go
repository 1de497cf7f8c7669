// Package version holds build-time version information for the ruleindex
// application.
//
// The variables are set during build via ldflags:
//
//	-ldflags "-X ruleindex/internal/version.version=v1.0.0 -X ruleindex/internal/version.commit=abc123 -X ruleindex/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name displayed in version output.
const ApplicationName = "RuleIndex CLI"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Info holds resolved version information.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Get returns the build version information with defaults applied.
func Get() Info {
	return Info{
		Version:   orDefault(version, DefaultVersion),
		Commit:    orDefault(commit, DefaultCommit),
		BuildTime: orDefault(buildTime, DefaultBuildTime),
	}
}

// Write prints the version information. In short mode only the version
// number is printed.
func (i Info) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, i.Version)
		return err
	}

	_, err := fmt.Fprintf(w, "%s\nVersion: %s\nCommit: %s\nBuilt: %s\n",
		ApplicationName, i.Version, i.Commit, i.BuildTime)
	return err
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

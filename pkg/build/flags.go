// SPDX-License-Identifier: MIT
//
// Package build carries version metadata stamped into the binary at
// compile time. Release builds inject the values with linker flags:
//
//	go build -ldflags "\
//	  -X spectro/pkg/build.buildName=spectro \
//	  -X spectro/pkg/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ) \
//	  -X spectro/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X spectro/pkg/build.buildVersion=0.3.0"
//
// Development builds leave the variables empty; Current substitutes
// "unknown" so plain `go run` keeps working without flags.
package build

// Info holds the metadata for one build of the binary.
type Info struct {
	Name    string // Application name
	Time    string // Build timestamp
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Populated by -ldflags during compilation; empty in development builds.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// Current returns the build metadata, substituting "unknown" for every
// field the build did not inject.
func Current() Info {
	return Info{
		Name:    orUnknown(buildName),
		Time:    orUnknown(buildTime),
		Commit:  orUnknown(buildCommit),
		Version: orUnknown(buildVersion),
	}
}

// Stamped reports whether version metadata was injected at build time.
// Callers use it to flag development binaries in logs and version output.
func Stamped() bool {
	return buildVersion != ""
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

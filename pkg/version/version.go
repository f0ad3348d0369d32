// Package version exposes build metadata injected at link time.
package version

import "runtime/debug"

// Set with -ldflags "-X github.com/rshade/batchrun/pkg/version.version=v1.2.3".
var (
	version   = ""
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the release version, falling back to the module version
// recorded by the Go toolchain and then to "dev".
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// GetGitCommit returns the commit the binary was built from, if known.
func GetGitCommit() string {
	return gitCommit
}

// GetBuildDate returns the build timestamp, if known.
func GetBuildDate() string {
	return buildDate
}

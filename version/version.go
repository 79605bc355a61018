// Package version reports build information for pbfuzz, taken from ldflags when set and from the VCS metadata Go
// embeds at build time otherwise.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// These variables can be set via ldflags at build time.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitTreeDirty indicates if the git tree was dirty at build time.
	GitTreeDirty = ""
)

// Info contains the version information for the build.
type Info struct {
	Version      string
	GitCommit    string
	GitTreeDirty bool
	GoVersion    string
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, kv := range info.Settings {
		switch {
		case kv.Key == "vcs.revision" && GitCommit == "":
			GitCommit = kv.Value
		case kv.Key == "vcs.modified" && GitTreeDirty == "":
			GitTreeDirty = kv.Value
		}
	}
}

// GetInfo returns the version information of the running binary.
func GetInfo() Info {
	return Info{
		Version:      Version,
		GitCommit:    GitCommit,
		GitTreeDirty: GitTreeDirty == "true",
		GoVersion:    runtime.Version(),
	}
}

// commit returns the abbreviated commit hash, marked if the tree was dirty.
func (i Info) commit() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// Short returns a single-line version string suitable for --version output.
func (i Info) Short() string {
	if commit := i.commit(); commit != "" {
		return i.Version + "+" + commit
	}
	return i.Version
}

// String returns a formatted multi-line version string.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pbfuzz version %s\n", i.Version)
	if commit := i.commit(); commit != "" {
		fmt.Fprintf(&sb, "  Commit:     %s\n", commit)
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}

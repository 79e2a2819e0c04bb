// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "runtime/debug"

// Build metadata stamped with -ldflags -X by the release build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo is what "lightwiki version" reports.
type BuildInfo struct {
	Version   string
	Sha       string
	Buildtime string
}

// ReadBuildInfo returns the stamped metadata. Binaries built without the
// ldflags, e.g. by go install, fall back to the module version and VCS
// stamp the toolchain records.
func ReadBuildInfo() BuildInfo {
	info := BuildInfo{Version: Version, Sha: Sha, Buildtime: Buildtime}
	if Version != "dev" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Sha = s.Value
		case "vcs.time":
			info.Buildtime = s.Value
		}
	}
	return info
}

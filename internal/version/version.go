// Where: internal/version/version.go
// What: Resolve the version string reported by imx version.
// Why: Builds are installed with go install; the VCS stamp is the only
// identity they carry.
package version

import (
	"runtime/debug"
)

// GetVersion returns the short VCS revision recorded at build time, with a
// "(dirty)" suffix when the tree had local modifications. Binaries built
// without VCS stamping report "dev".
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	revision := ""
	suffix := ""
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			if setting.Value == "true" {
				suffix = " (dirty)"
			}
		}
	}

	if revision == "" {
		return "dev"
	}
	return revision + suffix
}

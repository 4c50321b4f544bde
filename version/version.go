package version

import (
	"runtime/debug"
	"strings"
)

// Version is the library version. Release builds may pin it with -ldflags;
// when it is left at the default, Resolve falls back to the module version
// the host binary recorded for this library.
var Version = "dev"

// Info describes the running build of the library.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Resolve returns the library's build identity inside the running process.
// An ldflags-pinned Version wins; otherwise the module version from the
// host binary's build info is used, following replace directives.
func Resolve() Info {
	info := Info{Version: Version}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" {
		if v := moduleVersion(bi); v != "" {
			info.Version = v
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = shortCommit(s.Value)
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// moduleVersion finds this module in the build info, following a replace
// directive when one is in effect. A devel build has no usable version.
func moduleVersion(bi *debug.BuildInfo) string {
	mod := &bi.Main
	if mod.Path != modulePath {
		mod = nil
		for _, dep := range bi.Deps {
			if dep.Path == modulePath {
				mod = dep
				break
			}
		}
	}
	if mod == nil {
		return ""
	}
	if mod.Replace != nil {
		mod = mod.Replace
	}
	if mod.Version == "" || mod.Version == "(devel)" {
		return ""
	}
	return mod.Version
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String formats the identity as version[-commit][-dirty].
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Modified {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

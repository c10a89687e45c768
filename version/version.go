// Package version reports build information for the feed-miner binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue = "unknown"
	devVersion   = "dev"

	// Product is the name sent in the User-Agent header.
	Product = "feed-miner"
)

// Set at build time with -ldflags "-X github.com/richardwooding/feed-miner/version.Version=..."
var (
	Version   = devVersion
	GitCommit = unknownValue
	BuildDate = unknownValue
)

// Info contains version information
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns version information, falling back to VCS build settings
// when the linker flags were not supplied.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	if info.Version == devVersion {
		fromBuildInfo(&info)
	}

	info.Version = strings.TrimPrefix(info.Version, "v")

	return info
}

func fromBuildInfo(info *Info) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}

	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == unknownValue {
				info.GitCommit = shortCommit(setting.Value)
			}
		case "vcs.time":
			if info.BuildDate == unknownValue {
				info.BuildDate = setting.Value
			}
		}
	}
}

func shortCommit(value string) string {
	if len(value) > 7 {
		return value[:7]
	}
	return value
}

// GetVersion returns just the version string
func GetVersion() string {
	return Get().Version
}

// GetFullVersion returns the version with the commit appended when known.
func GetFullVersion() string {
	info := Get()
	if info.GitCommit != unknownValue {
		return info.Version + "-" + info.GitCommit
	}
	return info.Version
}

// String renders the multi-line output of --version.
func (i Info) String() string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuilt:  %s\ngo:     %s", Product, i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// UserAgent is the default User-Agent for outgoing requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+https://github.com/richardwooding/feed-miner)", Product, GetFullVersion())
}

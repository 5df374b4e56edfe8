package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the release version embedded in the binary.
// Override at build time with:
// go build -ldflags "-X github.com/oukeidos/boardtrans/internal/version.Version=0.2.0"
var Version = "0.1.0"

// Commit and BuildDate are set with -ldflags as well. When left at "unknown"
// they are filled from the VCS stamp the Go toolchain records.
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// Info returns a multi-line version string for CLI output.
func Info() string {
	commit, date := Commit, BuildDate
	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "unknown" && s.Value != "" {
					commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if date == "unknown" && s.Value != "" {
					date = s.Value
				}
			}
		}
	}
	return fmt.Sprintf("boardtrans %s\ncommit: %s\nbuild: %s", Version, commit, date)
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is set via the linker's -X flag on release builds
	Version = "unknown"

	FullVersion = ""
)

func init() {
	if Version == "unknown" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
			Version = buildInfo.Main.Version
		}
	}

	FullVersion = fmt.Sprintf("regen %s", Version)
}

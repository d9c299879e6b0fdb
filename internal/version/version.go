package version

import (
	"fmt"
	"runtime/debug"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Version returns the build version.
func Version() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// ShowVersion prints the version to stdout.
func ShowVersion() {
	fmt.Printf("cusbc %s\n", Version())
}

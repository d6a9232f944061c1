// Package version exposes build metadata set through -ldflags, for example
//
//	go build -ldflags "-X github.com/longkey1/searchchat/internal/version.Version=v1.0.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns just the version number.
func Short() string {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return Version
}

// Info returns a multi-line description of the build.
func Info() string {
	return fmt.Sprintf("searchchat %s\n  commit: %s\n  built:  %s\n  go:     %s %s/%s",
		Short(), CommitSHA, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Package version carries build metadata set with -ldflags, for example
//
//	-X github.com/kimlab-seismo/detectQuake/internal/version.Version=v0.3.0
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for a command's -version output.
func String(cmd string) string {
	return fmt.Sprintf("%s %s (%s, built %s)", cmd, Version, GitSHA, BuildTime)
}

// Package version holds the build version, set with
// -ldflags "-X github.com/bnema/lobbyopoly-cli/internal/version.Version=v1.2.3".
package version

var Version = "dev"

// Package cmd holds the build metadata of the mcpm binary.
//
// Release builds set these with the linker:
//
//	go build -ldflags "-X github.com/thoreinstein/mcpm/cmd.Version=v1.2.0 \
//	  -X github.com/thoreinstein/mcpm/cmd.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/thoreinstein/mcpm/cmd.Date=$(date -u +%FT%TZ)" ./cmd/mcpm
package cmd

var (
	// Version is the release tag. It is also stamped into backup
	// manifests so a restore can tell which mcpm wrote them.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "none"
	// Date is the UTC build time.
	Date = "unknown"
)

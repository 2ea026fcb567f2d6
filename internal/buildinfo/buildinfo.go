// Package buildinfo exposes version data stamped in at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/recipebook/internal/buildinfo.Version=v1.2.0 \
//	  -X github.com/dmitrijs2005/recipebook/internal/buildinfo.Date=2026-10-15 \
//	  -X github.com/dmitrijs2005/recipebook/internal/buildinfo.Commit=abc123"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version = "N/A"
	Date    = "N/A"
	Commit  = "N/A"
)

// UserAgent is the User-Agent sent by the CLI.
func UserAgent() string {
	if Version == "N/A" {
		return "recipebook-cli/dev"
	}
	return "recipebook-cli/" + Version
}

// PrintBuildData writes the version block shown on startup.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}

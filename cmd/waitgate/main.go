package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/waitgate/internal/cmd"
)

// Set via ldflags: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "waitgate:", err)
		os.Exit(1)
	}
}

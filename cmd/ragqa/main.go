// cmd/ragqa/main.go
package main

import (
	cmd "github.com/mwiater/ragqa/internal/cli"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version string
	commit  string
)

// main starts the ragqa CLI application by delegating to the cobra root
// command defined in the ragqa package.
func main() {
	cmd.SetVersionInfo(version, commit)
	cmd.Execute()
}

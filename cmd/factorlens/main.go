package main

import (
	"os"

	"github.com/wonny/factorlens/cmd/factorlens/commands"
)

// main is the entry point for the factorlens CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/factorlens [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

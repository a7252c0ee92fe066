package main

import (
	"os"

	"github.com/wonny/tearsheet/cmd/tearsheet/commands"
)

// main is the entry point for the tearsheet CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/tearsheet [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

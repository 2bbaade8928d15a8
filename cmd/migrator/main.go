package main

import (
	"os"

	"github.com/subosito/gotenv"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/cli"
)

func main() {
	// Credentials may live in a .env file next to the binary
	_ = gotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

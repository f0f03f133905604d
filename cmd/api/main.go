package main

import (
	"fmt"
	"os"

	"adaptive-view-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(cli.NewApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/orientation-scheduler/internal/cli"
)

func main() {
	if err := cli.NewApp().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

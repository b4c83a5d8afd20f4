package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/luxury-yacht/driftcheck/backend/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, cli.ErrDriftDetected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

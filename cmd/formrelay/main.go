// Package main is the entry point for the formrelay server application.
package main

import (
	"fmt"
	"os"

	"github.com/ASHISH26940/formrelay/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Package main is the entry point for the bank-analytics CLI binary.
package main

import (
	"os"

	"bank-analytics/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

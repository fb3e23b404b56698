// Package main is the entry point for the pinotboard CLI application.
// It serves and prints a real-time page visit dashboard backed by an Apache Pinot broker.
package main

import (
	"pinotboard/cli/cmd"
)

// main initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}

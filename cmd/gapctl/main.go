// Package main is the entry point for the gapctl CLI client.
package main

import (
	"github.com/webpulse/gapctl/cmd/gapctl/cmd"
)

func main() {
	cmd.Execute()
}

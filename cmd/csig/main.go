// Package main is the entry point for the csig CLI tool.
package main

import (
	"github.com/pyapi/csig/internal/cmd"
)

func main() {
	cmd.Execute()
}

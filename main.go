package main

import (
	"os"

	"github.com/wordtrail/syncore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/kdarko/wastedispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

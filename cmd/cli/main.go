package main

import (
	"os"

	"github.com/qos-dev/qosdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

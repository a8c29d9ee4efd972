package main

import (
	"os"

	"github.com/dshills/panel/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}

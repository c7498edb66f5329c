package main

import (
	"os"

	"github.com/docfusion/docfusion/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}

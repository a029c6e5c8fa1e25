package main

import (
	"os"

	"pyinsight/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}

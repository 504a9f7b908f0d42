package main

import (
	"os"

	"github.com/brandscan/brandscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

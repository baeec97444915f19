package main

import (
	"os"

	"github.com/spf13/afero"
)

func main() {
	if err := NewCmdRoot(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

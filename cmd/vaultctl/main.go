package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/homevault/cmd/vaultctl/commands"
)

func main() {
	if err := commands.NewRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

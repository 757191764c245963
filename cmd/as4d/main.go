package main

import (
	"fmt"
	"os"

	"github.com/sirosfoundation/go-as4-reliability/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "as4d:", err)
		os.Exit(1)
	}
}

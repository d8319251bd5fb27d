// Package main provides the Tapir NMT Toolkit CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("Tapir NMT Toolkit %s\n", version)
		return
	}

	fmt.Println("Tapir NMT Toolkit - Attention Mechanisms for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("See examples/decode for a step-wise decoding walkthrough.")
}

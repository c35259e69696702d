package main

import (
	"fmt"
	"os"

	"imaged/internal/imagectl"
)

func main() {
	if err := imagectl.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

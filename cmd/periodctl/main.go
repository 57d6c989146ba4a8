package main

import (
	"fmt"
	"os"
)

func main() {
	r := newRunner(os.Stdin, os.Stdout)
	if err := r.cli().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Package main is the yolo-detect developer CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "yolo-detect:", err)
		os.Exit(1)
	}
}

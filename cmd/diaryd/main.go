package main

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/intern-diary/cmd/diaryd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/yanqian/eventradar/internal/cli"
)

func main() {
	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "eventctl:", err)
		os.Exit(1)
	}
}

// Where: cmd/imx/main.go
// What: CLI entrypoint.
// Why: Execute imx commands with configured dependencies.
package main

import (
	"fmt"
	"os"

	"github.com/buildfleet/imx/internal/app"
)

func main() {
	deps, err := buildDependencies()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(app.Run(os.Args[1:], deps))
}

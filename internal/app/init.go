// Where: internal/app/init.go
// What: Init command.
// Why: Scaffold a starter matrix file for a new repository.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/meta"
)

// runInit writes the default matrix to the resolved path.
func runInit(cli CLI, deps Dependencies, out io.Writer) int {
	path := resolveMatrixPath(cli, deps)

	if _, err := os.Stat(path); err == nil && !cli.Init.Force {
		return exitWithError(out, fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	if err := matrix.Save(path, matrix.Default()); err != nil {
		return exitWithError(out, err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  %s lint     # check the matrix\n", meta.AppName)
	fmt.Fprintf(out, "  %s render   # generate the bake definition and README\n", meta.AppName)
	return 0
}

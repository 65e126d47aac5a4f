// Where: internal/app/lint.go
// What: Lint command.
// Why: Surface matrix defects, paired-variant drift above all, before builds.
package app

import (
	"fmt"
	"io"

	"github.com/buildfleet/imx/internal/lint"
)

// runLint checks the matrix and prints findings. Schema violations and
// error-level findings make the command fail.
func runLint(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	findings := lint.Check(m)
	for _, finding := range findings {
		fmt.Fprintln(out, finding)
	}

	if lint.HasErrors(findings) {
		fmt.Fprintf(out, "%s: matrix has errors\n", path)
		return 1
	}
	fmt.Fprintf(out, "%s: ok (%d variant(s))\n", path, len(m.Variants))
	return 0
}

// Where: internal/app/list.go
// What: List command.
// Why: Show the variant table at a glance.
package app

import (
	"fmt"
	"io"
)

// runList prints every variant with its three axis values.
func runList(cli CLI, deps Dependencies, out io.Writer) int {
	m, _, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	fmt.Fprintf(out, "%-28s %-8s %-30s %-26s %s\n",
		"NAME", "COMPUTE", "PRIMARY SOURCE", "OTHER DEPENDENCIES", "PAIR")
	for _, variant := range m.Variants {
		fmt.Fprintf(out, "%-28s %-8s %-30s %-26s %s\n",
			variant.Name,
			variant.ComputeTarget,
			variant.PrimaryPackageSource,
			variant.OtherDependenciesSource,
			variant.Pair,
		)
	}
	return 0
}

// Where: internal/app/info.go
// What: No-argument info view.
// Why: Orient the user: which matrix, how many variants, is it clean.
package app

import (
	"io"

	"github.com/buildfleet/imx/internal/config"
	"github.com/buildfleet/imx/internal/lint"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/ui"
)

// runInfo shows configuration and matrix state when imx runs without
// arguments.
func runInfo(cli CLI, deps Dependencies, out io.Writer) int {
	console := ui.New(out)

	configPath, err := config.GlobalConfigPath()
	if err != nil {
		return exitWithError(out, err)
	}
	matrixPath := resolveMatrixPath(cli, deps)

	console.Header("🗂", "Image variant matrix")
	console.Item("Config", configPath)
	console.Item("Matrix", matrixPath)

	m, err := matrix.Load(matrixPath)
	if err != nil {
		console.Warn("Matrix not loadable: " + err.Error())
		console.ItemPlain("Run 'imx init' to create one.")
		return 0
	}

	console.Item("Primary package", m.PrimaryPackage)
	console.Item("Variants", len(m.Variants))

	findings := lint.Check(m)
	if lint.HasErrors(findings) {
		console.Warn("Matrix has lint errors; run 'imx lint'.")
		return 1
	}
	if len(findings) > 0 {
		console.Warn("Matrix has lint warnings; run 'imx lint'.")
		return 0
	}
	console.Success("Matrix is clean.")
	return 0
}

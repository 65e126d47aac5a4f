// Where: internal/app/render.go
// What: Render command.
// Why: Produce the bake definition and README from a lint-clean matrix.
package app

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/buildfleet/imx/internal/lint"
	"github.com/buildfleet/imx/internal/meta"
	"github.com/buildfleet/imx/internal/release"
	"github.com/buildfleet/imx/internal/render"
)

// runRender renders artifacts into the output directory. A matrix with
// error-level lint findings is refused; drift must be fixed, not rendered.
func runRender(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	findings := lint.Check(m)
	for _, finding := range findings {
		fmt.Fprintln(out, finding)
	}
	if lint.HasErrors(findings) {
		return exitWithError(out, fmt.Errorf("refusing to render: matrix has errors"))
	}

	dir := strings.TrimSpace(cli.Render.OutDir)
	if dir == "" {
		dir = outputDir(path)
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(deps.WorkDir, dir)
	}

	// The lock always lives next to the matrix, where resolve wrote it, so an
	// --out-dir override still renders pinned versions.
	lock, err := release.LoadLock(filepath.Join(outputDir(path), meta.ReleaseLock))
	if err != nil {
		return exitWithError(out, err)
	}

	outputs, err := render.Render(m, cli.Render.Tag, lock.Packages)
	if err != nil {
		return exitWithError(out, err)
	}
	if err := outputs.Write(dir); err != nil {
		return exitWithError(out, err)
	}

	fmt.Fprintf(out, "Rendered %s\n", filepath.Join(dir, meta.BakeFile))
	fmt.Fprintf(out, "Rendered %s\n", filepath.Join(dir, meta.ReadmeFile))
	return 0
}

// Where: internal/app/command_context.go
// What: Shared matrix resolution for CLI commands.
// Why: Reduce duplicated path/config setup across commands.
package app

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/buildfleet/imx/internal/config"
	"github.com/buildfleet/imx/internal/envutil"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/meta"
)

func exitWithError(out io.Writer, err error) int {
	fmt.Fprintln(out, err)
	return 1
}

// resolveMatrixPath picks the matrix file: flag, then IMX_MATRIX, then the
// global config default, then image-matrix.yaml in the working directory.
func resolveMatrixPath(cli CLI, deps Dependencies) string {
	candidates := []string{
		cli.Matrix,
		envutil.GetHostEnv("MATRIX"),
		config.LoadGlobalConfigOrDefault().MatrixPath,
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(deps.WorkDir, candidate)
		}
		return candidate
	}
	return filepath.Join(deps.WorkDir, meta.MatrixFile)
}

// loadMatrix loads the resolved matrix file and applies global defaults.
func loadMatrix(cli CLI, deps Dependencies) (matrix.Matrix, string, error) {
	path := resolveMatrixPath(cli, deps)
	m, err := matrix.Load(path)
	if err != nil {
		return matrix.Matrix{}, path, err
	}
	if strings.TrimSpace(m.Registry) == "" {
		m.Registry = config.LoadGlobalConfigOrDefault().Registry
	}
	return m, path, nil
}

// outputDir returns where rendered artifacts live for a matrix file.
func outputDir(matrixPath string) string {
	return filepath.Join(filepath.Dir(matrixPath), meta.OutputDir)
}

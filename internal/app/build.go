// Where: internal/app/build.go
// What: Build command.
// Why: Drive docker buildx bake over the rendered matrix, or report image state.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/buildfleet/imx/internal/dockerx"
	"github.com/buildfleet/imx/internal/lint"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/meta"
	"github.com/buildfleet/imx/internal/release"
	"github.com/buildfleet/imx/internal/render"
)

// runBuild lints, renders, and bakes the requested targets. With --check it
// only reports which variant images already exist on the local daemon.
func runBuild(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	findings := lint.Check(m)
	for _, finding := range findings {
		fmt.Fprintln(out, finding)
	}
	if lint.HasErrors(findings) {
		return exitWithError(out, fmt.Errorf("refusing to build: matrix has errors"))
	}

	if cli.Build.Check {
		return runBuildCheck(cli, deps, m, out)
	}

	if deps.Runner == nil {
		fmt.Fprintln(out, "build: command runner not configured")
		return 1
	}

	dir := outputDir(path)
	lock, err := release.LoadLock(filepath.Join(dir, meta.ReleaseLock))
	if err != nil {
		return exitWithError(out, err)
	}
	outputs, err := render.Render(m, cli.Build.Tag, lock.Packages)
	if err != nil {
		return exitWithError(out, err)
	}
	if err := outputs.Write(dir); err != nil {
		return exitWithError(out, err)
	}

	req := dockerx.BakeRequest{
		Dir:      filepath.Dir(path),
		BakeFile: filepath.Join(dir, meta.BakeFile),
		Targets:  cli.Build.Targets,
		NoCache:  cli.Build.NoCache,
		Push:     cli.Build.Push,
		Verbose:  cli.Build.Verbose,
	}
	if err := dockerx.RunBake(context.Background(), deps.Runner, req); err != nil {
		return exitWithError(out, err)
	}

	fmt.Fprintln(out, "build complete")
	return 0
}

func runBuildCheck(cli CLI, deps Dependencies, m matrix.Matrix, out io.Writer) int {
	if deps.DockerClient == nil {
		fmt.Fprintln(out, "build: docker client not configured")
		return 1
	}
	client, err := deps.DockerClient()
	if err != nil {
		return exitWithError(out, err)
	}

	selected := selectVariants(m, cli.Build.Targets)
	refs := make([]string, 0, len(selected))
	byRef := map[string]string{}
	for _, variant := range selected {
		ref := m.ImageRef(variant, cli.Build.Tag)
		refs = append(refs, ref)
		byRef[ref] = variant.Name
	}

	existing, err := dockerx.ExistingImages(context.Background(), client, refs)
	if err != nil {
		return exitWithError(out, err)
	}

	missing := 0
	for _, ref := range refs {
		status := "missing"
		if existing[ref] {
			status = "present"
		} else {
			missing++
		}
		fmt.Fprintf(out, "%-28s %-8s %s\n", byRef[ref], status, ref)
	}
	if missing > 0 {
		fmt.Fprintf(out, "%d image(s) missing\n", missing)
		return 1
	}
	return 0
}

// selectVariants filters the matrix by target names. Names may be variant
// names or the bake group names (cpu, gpu, default). Empty selects all.
func selectVariants(m matrix.Matrix, targets []string) []matrix.Variant {
	if len(targets) == 0 {
		return m.Variants
	}

	wanted := map[string]bool{}
	groups := map[string]bool{}
	for _, target := range targets {
		switch target {
		case "default":
			return m.Variants
		case string(matrix.ComputeCPU), string(matrix.ComputeGPU):
			groups[target] = true
		default:
			wanted[target] = true
		}
	}

	var selected []matrix.Variant
	for _, variant := range m.Variants {
		if wanted[variant.Name] || groups[string(variant.ComputeTarget)] {
			selected = append(selected, variant)
		}
	}
	return selected
}

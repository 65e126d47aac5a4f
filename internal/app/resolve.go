// Where: internal/app/resolve.go
// What: Resolve command.
// Why: Pin latest-published-release sources to concrete versions.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/buildfleet/imx/internal/meta"
	"github.com/buildfleet/imx/internal/release"
)

// runResolve queries the package index and writes the release lock.
func runResolve(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	if deps.Resolver == nil {
		fmt.Fprintln(out, "resolve: resolver not configured")
		return 1
	}

	packages := release.PackagesToResolve(m)
	if len(packages) == 0 {
		fmt.Fprintln(out, "No variant installs from the package index; nothing to resolve.")
		return 0
	}

	pins, err := deps.Resolver.ResolveAll(context.Background(), m)
	if err != nil {
		return exitWithError(out, err)
	}
	for _, pkg := range packages {
		fmt.Fprintf(out, "%s %s\n", pkg, pins[pkg])
	}

	if cli.Resolve.DryRun {
		return 0
	}

	lockPath := filepath.Join(outputDir(path), meta.ReleaseLock)
	if err := release.SaveLock(lockPath, release.NewLock(pins, deps.Now())); err != nil {
		return exitWithError(out, err)
	}
	fmt.Fprintf(out, "Pinned %d package(s) in %s\n", len(pins), lockPath)
	return 0
}

// Where: internal/dockerx/bake_exec.go
// What: Bake command execution and argument assembly.
// Why: Isolate the buildx run flow from matrix and render internals.
package dockerx

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/buildfleet/imx/internal/meta"
)

// BakeRequest describes one buildx bake invocation against a rendered file.
type BakeRequest struct {
	Dir      string   // working directory (build context root)
	BakeFile string   // rendered bake definition path
	Targets  []string // target or group names; empty builds the default group
	NoCache  bool
	Push     bool
	Verbose  bool
}

// RunBake executes docker buildx bake for the request.
func RunBake(ctx context.Context, runner CommandRunner, req BakeRequest) error {
	if runner == nil {
		return fmt.Errorf("command runner is nil")
	}
	if strings.TrimSpace(req.BakeFile) == "" {
		return fmt.Errorf("bake file is required")
	}
	if _, err := os.Stat(req.BakeFile); err != nil {
		return fmt.Errorf("bake file not found: %w", err)
	}

	args := buildBakeArgs(req)
	if req.Verbose {
		return runner.Run(ctx, req.Dir, "docker", args...)
	}

	output, err := runner.RunOutput(ctx, req.Dir, "docker", args...)
	if err == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return err
	}
	return fmt.Errorf("buildx bake failed: %w\n%s", err, trimmed)
}

func buildBakeArgs(req BakeRequest) []string {
	args := []string{"buildx", "bake", "--builder", builderName(), "-f", req.BakeFile}
	if req.NoCache {
		args = append(args, "--no-cache")
	}
	if req.Push {
		args = append(args, "--push")
	}
	if req.Verbose {
		args = append(args, "--progress", "plain")
	}
	args = append(args, req.Targets...)
	return args
}

func builderName() string {
	if value := strings.TrimSpace(os.Getenv("BUILDX_BUILDER")); value != "" {
		return value
	}
	return fmt.Sprintf("%s-buildx", meta.Slug)
}

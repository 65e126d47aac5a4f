// Where: internal/app/publish.go
// What: Publish command.
// Why: Push rendered artifacts and build state to shared CI storage.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildfleet/imx/internal/config"
	"github.com/buildfleet/imx/internal/interaction"
	"github.com/buildfleet/imx/internal/lint"
	"github.com/buildfleet/imx/internal/meta"
	"github.com/buildfleet/imx/internal/publish"
	"github.com/buildfleet/imx/internal/release"
	"github.com/buildfleet/imx/internal/render"
)

var (
	isTerminal  = interaction.IsTerminal
	promptYesNo = interaction.PromptYesNo
)

// runPublish renders the matrix and uploads the artifacts, then records one
// state row per variant. Publishing touches shared storage, so it asks first.
func runPublish(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	findings := lint.Check(m)
	for _, finding := range findings {
		fmt.Fprintln(out, finding)
	}
	if lint.HasErrors(findings) {
		return exitWithError(out, fmt.Errorf("refusing to publish: matrix has errors"))
	}

	if deps.Storage == nil {
		fmt.Fprintln(out, "publish: storage not configured")
		return 1
	}

	cfg := config.LoadGlobalConfigOrDefault()
	bucket := firstNonEmpty(cli.Publish.Bucket, cfg.ArtifactBucket)
	table := firstNonEmpty(cli.Publish.Table, cfg.StateTable)
	if bucket == "" {
		return exitWithError(out, fmt.Errorf("artifact bucket is required (--bucket or config set bucket)"))
	}

	fmt.Fprintf(out, "Publishing %d variant(s) to s3://%s\n", len(m.Variants), bucket)
	if !cli.Publish.Yes {
		if !isTerminal(os.Stdin) {
			return exitWithError(out, fmt.Errorf("publish requires --yes in non-interactive mode"))
		}
		confirmed, err := promptYesNo("Are you sure you want to continue?")
		if err != nil {
			return exitWithError(out, err)
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted.")
			return 1
		}
	}

	dir := outputDir(path)
	lock, err := release.LoadLock(filepath.Join(dir, meta.ReleaseLock))
	if err != nil {
		return exitWithError(out, err)
	}
	outputs, err := render.Render(m, cli.Publish.Tag, lock.Packages)
	if err != nil {
		return exitWithError(out, err)
	}

	records := make([]publish.BuildRecord, 0, len(m.Variants))
	for _, variant := range m.Variants {
		records = append(records, publish.BuildRecord{
			Variant:            variant.Name,
			ImageRef:           m.ImageRef(variant, cli.Publish.Tag),
			ComputeTarget:      string(variant.ComputeTarget),
			PrimarySource:      string(variant.PrimaryPackageSource),
			DependenciesSource: string(variant.OtherDependenciesSource),
		})
	}

	ctx := context.Background()
	s3Client, stateClient, err := deps.Storage(ctx, publish.Options{
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpoint,
	})
	if err != nil {
		return exitWithError(out, err)
	}

	runID, err := publish.New(s3Client, stateClient).Publish(ctx, publish.Request{
		Bucket: bucket,
		Table:  table,
		Prefix: meta.Slug,
		Artifacts: map[string][]byte{
			meta.BakeFile:   outputs.Bake,
			meta.ReadmeFile: outputs.Readme,
		},
		Records: records,
	}, out)
	if err != nil {
		return exitWithError(out, err)
	}

	fmt.Fprintf(out, "publish complete (run %s)\n", runID)
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

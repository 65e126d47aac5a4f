// Where: cmd/imx/cli.go
// What: CLI dependency wiring helpers.
// Why: Centralize construction for testability.
package main

import (
	"os"

	"github.com/buildfleet/imx/internal/app"
	"github.com/buildfleet/imx/internal/config"
	"github.com/buildfleet/imx/internal/dockerx"
	"github.com/buildfleet/imx/internal/interaction"
	"github.com/buildfleet/imx/internal/publish"
	"github.com/buildfleet/imx/internal/release"
)

var (
	getwd           = os.Getwd
	newDockerClient = dockerx.NewClient
)

// buildDependencies constructs all runtime dependencies required by the CLI.
func buildDependencies() (app.Dependencies, error) {
	workDir, err := getwd()
	if err != nil {
		return app.Dependencies{}, err
	}

	cfg := config.LoadGlobalConfigOrDefault()

	deps := app.Dependencies{
		WorkDir:      workDir,
		Out:          os.Stdout,
		Prompter:     interaction.HuhPrompter{},
		DockerClient: newDockerClient,
		Runner:       dockerx.ExecRunner{},
		Resolver:     release.NewResolver(cfg.IndexURL),
		Storage:      publish.NewAWSClients,
	}
	return deps, nil
}

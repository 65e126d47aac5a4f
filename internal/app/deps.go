// Where: internal/app/deps.go
// What: Injected dependency definitions for CLI commands.
// Why: Keep subsystems swappable for tests.
package app

import (
	"context"
	"io"
	"time"

	"github.com/buildfleet/imx/internal/dockerx"
	"github.com/buildfleet/imx/internal/interaction"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/publish"
)

// DockerClientFactory returns a Docker client for image queries.
type DockerClientFactory func() (dockerx.Client, error)

// ReleaseResolver resolves latest package releases for the matrix.
type ReleaseResolver interface {
	ResolveAll(ctx context.Context, m matrix.Matrix) (map[string]string, error)
}

// StorageFactory builds the artifact and state storage clients for publish.
type StorageFactory func(ctx context.Context, opts publish.Options) (publish.S3API, publish.StateAPI, error)

// Dependencies holds all injected dependencies required for CLI command
// execution. This structure enables dependency injection for testing and
// allows swapping implementations of various subsystems.
type Dependencies struct {
	WorkDir      string
	Out          io.Writer
	Now          func() time.Time
	Prompter     interaction.Prompter
	DockerClient DockerClientFactory
	Runner       dockerx.CommandRunner
	Resolver     ReleaseResolver
	Storage      StorageFactory
}

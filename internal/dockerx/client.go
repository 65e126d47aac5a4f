// Where: internal/dockerx/client.go
// What: Docker SDK helpers for variant image queries.
// Why: Report which matrix images already exist on the local daemon.
package dockerx

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// Client defines the subset of Docker SDK methods used by this package.
// This interface enables mocking the Docker client in tests.
type Client interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
}

// NewClient creates a Docker SDK client from the environment.
func NewClient() (Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// ExistingImages returns which of the given references exist locally,
// keyed by reference.
func ExistingImages(ctx context.Context, cli Client, refs []string) (map[string]bool, error) {
	images, err := cli.ImageList(ctx, image.ListOptions{All: true})
	if err != nil {
		return nil, err
	}

	tagged := map[string]bool{}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == "<none>:<none>" {
				continue
			}
			tagged[tag] = true
		}
	}

	result := make(map[string]bool, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		result[ref] = tagged[ref]
	}
	return result, nil
}

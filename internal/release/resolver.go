// Where: internal/release/resolver.go
// What: Latest-release lookups against the package index.
// Why: Pin latest-published-release sources to concrete versions per build.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/buildfleet/imx/internal/matrix"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultIndexURL is the JSON API of the public package index.
const DefaultIndexURL = "https://pypi.org/pypi"

// Resolver fetches the latest published version of packages.
type Resolver struct {
	client   *retryablehttp.Client
	indexURL string
}

// NewResolver creates a resolver against the given index URL.
// An empty URL selects the public index.
func NewResolver(indexURL string) *Resolver {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil

	if strings.TrimSpace(indexURL) == "" {
		indexURL = DefaultIndexURL
	}
	return &Resolver{client: client, indexURL: strings.TrimSuffix(indexURL, "/")}
}

type indexResponse struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion returns the latest published release of pkg.
func (r *Resolver) LatestVersion(ctx context.Context, pkg string) (string, error) {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return "", fmt.Errorf("package name is required")
	}

	url := fmt.Sprintf("%s/%s/json", r.indexURL, pkg)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query package index for %s: %w", pkg, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("package index returned %s for %s", resp.Status, pkg)
	}

	var payload indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode index response for %s: %w", pkg, err)
	}
	version := strings.TrimSpace(payload.Info.Version)
	if version == "" {
		return "", fmt.Errorf("package index has no version for %s", pkg)
	}
	return version, nil
}

// PackagesToResolve lists the packages whose latest release matters for the
// matrix: the primary package when any variant installs it from the index,
// and the tracked dependencies when any variant installs the rest from there.
func PackagesToResolve(m matrix.Matrix) []string {
	primaryFromIndex := false
	depsFromIndex := false
	for _, variant := range m.Variants {
		if variant.PrimaryPackageSource == matrix.SourceLatestRelease {
			primaryFromIndex = true
		}
		if variant.OtherDependenciesSource == matrix.SourceLatestRelease {
			depsFromIndex = true
		}
	}

	var packages []string
	if primaryFromIndex && strings.TrimSpace(m.PrimaryPackage) != "" {
		packages = append(packages, m.PrimaryPackage)
	}
	if depsFromIndex {
		for _, pkg := range m.TrackedPackages {
			if strings.TrimSpace(pkg) == "" || pkg == m.PrimaryPackage {
				continue
			}
			packages = append(packages, pkg)
		}
	}
	return packages
}

// ResolveAll resolves every package relevant to the matrix into a pin set.
func (r *Resolver) ResolveAll(ctx context.Context, m matrix.Matrix) (map[string]string, error) {
	pins := map[string]string{}
	for _, pkg := range PackagesToResolve(m) {
		version, err := r.LatestVersion(ctx, pkg)
		if err != nil {
			return nil, err
		}
		pins[pkg] = version
	}
	return pins, nil
}

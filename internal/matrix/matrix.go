// Where: internal/matrix/matrix.go
// What: Image variant matrix data model.
// Why: Describe every buildable CI image as one record with three axes.
package matrix

import (
	"fmt"
	"strings"
)

// CurrentVersion is the matrix file format version this tool reads and writes.
const CurrentVersion = 1

// ComputeTarget selects the hardware flavor an image is built for.
type ComputeTarget string

const (
	ComputeCPU ComputeTarget = "cpu"
	ComputeGPU ComputeTarget = "gpu"
)

// ComputeTargets lists every legal compute target.
func ComputeTargets() []ComputeTarget {
	return []ComputeTarget{ComputeCPU, ComputeGPU}
}

// ParseComputeTarget normalizes and validates a compute target value.
func ParseComputeTarget(value string) (ComputeTarget, error) {
	switch ComputeTarget(strings.ToLower(strings.TrimSpace(value))) {
	case ComputeCPU:
		return ComputeCPU, nil
	case ComputeGPU:
		return ComputeGPU, nil
	default:
		return "", fmt.Errorf("unsupported compute target: %q", value)
	}
}

// PackageSource names where a package is installed from during the image build.
type PackageSource string

const (
	// SourceMainBranch builds the package from its main development branch.
	SourceMainBranch PackageSource = "main-branch-source"
	// SourceMultiBackendBranch builds the package from its multi-backend
	// development branch. Only valid for the primary package axis.
	SourceMultiBackendBranch PackageSource = "multi-backend-branch-source"
	// SourceLatestRelease installs the latest published release from the
	// package index.
	SourceLatestRelease PackageSource = "latest-published-release"
)

// PrimarySources lists legal values for the primary package axis.
func PrimarySources() []PackageSource {
	return []PackageSource{SourceMainBranch, SourceMultiBackendBranch, SourceLatestRelease}
}

// DependencySources lists legal values for the other-dependencies axis.
func DependencySources() []PackageSource {
	return []PackageSource{SourceMainBranch, SourceLatestRelease}
}

// ParsePrimarySource validates a primary package source value.
func ParsePrimarySource(value string) (PackageSource, error) {
	source := PackageSource(strings.TrimSpace(value))
	for _, candidate := range PrimarySources() {
		if source == candidate {
			return source, nil
		}
	}
	return "", fmt.Errorf("unsupported primary package source: %q", value)
}

// ParseDependencySource validates an other-dependencies source value.
func ParseDependencySource(value string) (PackageSource, error) {
	source := PackageSource(strings.TrimSpace(value))
	for _, candidate := range DependencySources() {
		if source == candidate {
			return source, nil
		}
	}
	return "", fmt.Errorf("unsupported dependencies source: %q", value)
}

// Variant is one named build target: a unique combination of compute target,
// primary package source, and the source policy for all other dependencies.
type Variant struct {
	Name                    string            `yaml:"name"`
	ComputeTarget           ComputeTarget     `yaml:"compute_target"`
	PrimaryPackageSource    PackageSource     `yaml:"primary_package_source"`
	OtherDependenciesSource PackageSource     `yaml:"other_dependencies_source"`
	Dockerfile              string            `yaml:"dockerfile,omitempty"`
	Context                 string            `yaml:"context,omitempty"`
	BuildArgs               map[string]string `yaml:"build_args,omitempty"`
	Labels                  map[string]string `yaml:"labels,omitempty"`
	// Pair names the variant this one must stay synchronized with. Declared
	// on one side; resolution is symmetric.
	Pair string `yaml:"pair,omitempty"`
}

// Matrix is the full variant table plus shared build settings.
type Matrix struct {
	Version        int    `yaml:"version"`
	Registry       string `yaml:"registry,omitempty"`
	ImagePrefix    string `yaml:"image_prefix,omitempty"`
	PrimaryPackage string `yaml:"primary_package"`
	// TrackedPackages are the dependencies whose latest published release is
	// pinned for variants that install them from the package index.
	TrackedPackages []string  `yaml:"tracked_packages,omitempty"`
	Variants        []Variant `yaml:"variants"`
}

// Find returns the variant with the given name.
func (m Matrix) Find(name string) (Variant, bool) {
	for _, variant := range m.Variants {
		if variant.Name == name {
			return variant, true
		}
	}
	return Variant{}, false
}

// Names returns variant names in file order.
func (m Matrix) Names() []string {
	names := make([]string, 0, len(m.Variants))
	for _, variant := range m.Variants {
		names = append(names, variant.Name)
	}
	return names
}

// ImageRef builds the full image reference for a variant.
// Example: ghcr.io/acme/peft-ci-peft-cpu:latest.
func (m Matrix) ImageRef(variant Variant, tag string) string {
	if strings.TrimSpace(tag) == "" {
		tag = "latest"
	}
	name := variant.Name
	if prefix := strings.TrimSpace(m.ImagePrefix); prefix != "" {
		name = prefix + "-" + name
	}
	registry := strings.TrimSpace(m.Registry)
	if registry != "" && !strings.HasSuffix(registry, "/") {
		registry += "/"
	}
	return fmt.Sprintf("%s%s:%s", registry, name, tag)
}

// DockerfilePath returns the variant's Dockerfile path, defaulting to the
// docker/<name>/Dockerfile layout used by the CI tree.
func (v Variant) DockerfilePath() string {
	if strings.TrimSpace(v.Dockerfile) != "" {
		return v.Dockerfile
	}
	return fmt.Sprintf("docker/%s/Dockerfile", v.Name)
}

// ContextDir returns the variant's build context, defaulting to the repo root.
func (v Variant) ContextDir() string {
	if strings.TrimSpace(v.Context) != "" {
		return v.Context
	}
	return "."
}

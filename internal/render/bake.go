// Where: internal/render/bake.go
// What: Build the docker-bake JSON definition from the matrix.
// Why: Give buildx one target per variant plus per-compute groups.
package render

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/meta"
)

// Build args every target receives. Dockerfiles read these to pick install
// sources, so the axis values travel with the build.
const (
	ArgComputeTarget         = "COMPUTE_TARGET"
	ArgPrimaryPackage        = "PRIMARY_PACKAGE"
	ArgPrimarySource         = "PRIMARY_PACKAGE_SOURCE"
	ArgDependenciesSource    = "OTHER_DEPENDENCIES_SOURCE"
	ArgPrimaryPinnedVersion  = "PRIMARY_PACKAGE_VERSION"
	ArgDependenciesPinSuffix = "_VERSION"
)

// BakeTarget is one buildx bake target entry.
type BakeTarget struct {
	Context    string            `json:"context"`
	Dockerfile string            `json:"dockerfile"`
	Tags       []string          `json:"tags"`
	Args       map[string]string `json:"args,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// BakeGroup lists the targets built together.
type BakeGroup struct {
	Targets []string `json:"targets"`
}

// BakeFile is the root document buildx consumes with -f.
type BakeFile struct {
	Group  map[string]BakeGroup  `json:"group"`
	Target map[string]BakeTarget `json:"target"`
}

// BuildBakeFile assembles the bake definition. pins maps package names to
// release versions resolved from the package index; targets whose sources are
// latest-published-release consume them as build args.
func BuildBakeFile(m matrix.Matrix, tag string, pins map[string]string) BakeFile {
	out := BakeFile{
		Group:  map[string]BakeGroup{},
		Target: map[string]BakeTarget{},
	}

	groups := map[string][]string{}
	for _, variant := range m.Variants {
		out.Target[variant.Name] = buildTarget(m, variant, tag, pins)
		groups["default"] = append(groups["default"], variant.Name)
		groups[string(variant.ComputeTarget)] = append(groups[string(variant.ComputeTarget)], variant.Name)
	}

	for name, targets := range groups {
		sort.Strings(targets)
		out.Group[name] = BakeGroup{Targets: targets}
	}
	return out
}

func buildTarget(m matrix.Matrix, variant matrix.Variant, tag string, pins map[string]string) BakeTarget {
	args := map[string]string{
		ArgComputeTarget:      string(variant.ComputeTarget),
		ArgPrimaryPackage:     m.PrimaryPackage,
		ArgPrimarySource:      string(variant.PrimaryPackageSource),
		ArgDependenciesSource: string(variant.OtherDependenciesSource),
	}
	for key, value := range variant.BuildArgs {
		args[key] = value
	}
	if variant.PrimaryPackageSource == matrix.SourceLatestRelease {
		if version, ok := pins[m.PrimaryPackage]; ok {
			args[ArgPrimaryPinnedVersion] = version
		}
	}
	if variant.OtherDependenciesSource == matrix.SourceLatestRelease {
		for pkg, version := range pins {
			if pkg == m.PrimaryPackage {
				continue
			}
			args[pinArgName(pkg)] = version
		}
	}

	labels := map[string]string{
		meta.LabelPrefix + ".variant": variant.Name,
		meta.LabelPrefix + ".compute": string(variant.ComputeTarget),
	}
	for key, value := range variant.Labels {
		labels[key] = value
	}

	return BakeTarget{
		Context:    variant.ContextDir(),
		Dockerfile: variant.DockerfilePath(),
		Tags:       []string{m.ImageRef(variant, tag)},
		Args:       args,
		Labels:     labels,
	}
}

// pinArgName converts a package name to its version build arg.
// Example: "transformers" becomes "TRANSFORMERS_VERSION".
func pinArgName(pkg string) string {
	normalized := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(pkg))
	return normalized + ArgDependenciesPinSuffix
}

// MarshalBakeFile encodes the bake definition with stable formatting.
func MarshalBakeFile(file BakeFile) ([]byte, error) {
	payload, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

// Where: internal/lint/lint.go
// What: Consistency checks for the image variant matrix.
// Why: Catch axis omissions and paired-variant drift before anything builds.
package lint

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/buildfleet/imx/internal/matrix"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one lint result tied to a variant (or the matrix itself).
type Finding struct {
	Severity Severity
	Variant  string
	Message  string
}

func (f Finding) String() string {
	if f.Variant == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Variant, f.Message)
}

// HasErrors reports whether any finding is error-level.
func HasErrors(findings []Finding) bool {
	for _, finding := range findings {
		if finding.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Check runs every matrix invariant and returns all findings.
func Check(m matrix.Matrix) []Finding {
	var findings []Finding
	findings = append(findings, checkMatrixFields(m)...)
	findings = append(findings, checkVariantAxes(m)...)
	findings = append(findings, checkDuplicateNames(m)...)

	pairs, pairFindings := resolvePairs(m)
	findings = append(findings, pairFindings...)
	findings = append(findings, checkPairDrift(m, pairs)...)
	findings = append(findings, checkUnpairedMultiBackend(m, pairs)...)
	return findings
}

func checkMatrixFields(m matrix.Matrix) []Finding {
	var findings []Finding
	if strings.TrimSpace(m.PrimaryPackage) == "" {
		findings = append(findings, errorf("", "primary_package is required"))
	}
	return findings
}

// checkVariantAxes enforces that every variant populates all axes with values
// from the respective enumerations.
func checkVariantAxes(m matrix.Matrix) []Finding {
	var findings []Finding
	for _, variant := range m.Variants {
		if strings.TrimSpace(variant.Name) == "" {
			findings = append(findings, errorf("", "variant without a name"))
			continue
		}
		if _, err := matrix.ParseComputeTarget(string(variant.ComputeTarget)); err != nil {
			findings = append(findings, errorf(variant.Name, err.Error()))
		}
		if _, err := matrix.ParsePrimarySource(string(variant.PrimaryPackageSource)); err != nil {
			findings = append(findings, errorf(variant.Name, err.Error()))
		}
		if _, err := matrix.ParseDependencySource(string(variant.OtherDependenciesSource)); err != nil {
			findings = append(findings, errorf(variant.Name, err.Error()))
		}
	}
	return findings
}

func checkDuplicateNames(m matrix.Matrix) []Finding {
	var findings []Finding
	seen := map[string]bool{}
	for _, variant := range m.Variants {
		if variant.Name == "" {
			continue
		}
		if seen[variant.Name] {
			findings = append(findings, errorf(variant.Name, "duplicate variant name"))
		}
		seen[variant.Name] = true
	}
	return findings
}

// pair is an unordered pairing, with Left < Right for determinism.
type pair struct {
	Left  string
	Right string
}

func makePair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{Left: a, Right: b}
}

// resolvePairs collects declared pairings and validates the references.
// Declaring the pairing on both sides is allowed as long as the claims agree.
func resolvePairs(m matrix.Matrix) ([]pair, []Finding) {
	var findings []Finding
	set := map[pair]bool{}
	claimed := map[string]string{}

	for _, variant := range m.Variants {
		target := strings.TrimSpace(variant.Pair)
		if target == "" {
			continue
		}
		if target == variant.Name {
			findings = append(findings, errorf(variant.Name, "variant cannot be paired with itself"))
			continue
		}
		if _, ok := m.Find(target); !ok {
			findings = append(findings, errorf(variant.Name, fmt.Sprintf("paired variant %q does not exist", target)))
			continue
		}
		if prior, ok := claimed[target]; ok && prior != variant.Name {
			findings = append(findings, errorf(variant.Name,
				fmt.Sprintf("variant %q is already paired with %q", target, prior)))
			continue
		}
		if prior, ok := claimed[variant.Name]; ok && prior != target {
			findings = append(findings, errorf(variant.Name,
				fmt.Sprintf("conflicting pair declarations: %q and %q", prior, target)))
			continue
		}
		claimed[variant.Name] = target
		claimed[target] = variant.Name
		set[makePair(variant.Name, target)] = true
	}

	pairs := make([]pair, 0, len(set))
	for p := range set {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Left < pairs[j].Left })
	return pairs, findings
}

// checkPairDrift enforces the synchronization rule: paired variants must be
// identical except for the branch origin of the primary package source.
func checkPairDrift(m matrix.Matrix, pairs []pair) []Finding {
	var findings []Finding
	for _, p := range pairs {
		left, okLeft := m.Find(p.Left)
		right, okRight := m.Find(p.Right)
		if !okLeft || !okRight {
			continue
		}

		if left.ComputeTarget != right.ComputeTarget {
			findings = append(findings, errorf(p.Left,
				fmt.Sprintf("paired with %q but compute_target differs (%s vs %s)",
					p.Right, left.ComputeTarget, right.ComputeTarget)))
		}
		if left.OtherDependenciesSource != right.OtherDependenciesSource {
			findings = append(findings, errorf(p.Left,
				fmt.Sprintf("paired with %q but other_dependencies_source differs (%s vs %s)",
					p.Right, left.OtherDependenciesSource, right.OtherDependenciesSource)))
		}
		if !branchPair(left.PrimaryPackageSource, right.PrimaryPackageSource) {
			findings = append(findings, errorf(p.Left,
				fmt.Sprintf("paired with %q but primary_package_source values are %s and %s; "+
					"pairs must cover the %s / %s branches",
					p.Right, left.PrimaryPackageSource, right.PrimaryPackageSource,
					matrix.SourceMainBranch, matrix.SourceMultiBackendBranch)))
		}
		// The default dockerfile layout derives from the variant name, so only
		// explicit overrides are compared.
		if left.Dockerfile != right.Dockerfile {
			findings = append(findings, warnf(p.Left,
				fmt.Sprintf("paired with %q but dockerfile differs", p.Right)))
		}
		if left.Context != right.Context {
			findings = append(findings, warnf(p.Left,
				fmt.Sprintf("paired with %q but context differs", p.Right)))
		}
		if !reflect.DeepEqual(left.BuildArgs, right.BuildArgs) {
			findings = append(findings, warnf(p.Left,
				fmt.Sprintf("paired with %q but build_args differ", p.Right)))
		}
		if !reflect.DeepEqual(left.Labels, right.Labels) {
			findings = append(findings, warnf(p.Left,
				fmt.Sprintf("paired with %q but labels differ", p.Right)))
		}
	}
	return findings
}

// branchPair reports whether the two primary sources are exactly the main and
// multi-backend source builds, in either order.
func branchPair(a, b matrix.PackageSource) bool {
	return (a == matrix.SourceMainBranch && b == matrix.SourceMultiBackendBranch) ||
		(a == matrix.SourceMultiBackendBranch && b == matrix.SourceMainBranch)
}

// checkUnpairedMultiBackend warns about multi-backend variants that have no
// declared main-branch counterpart to stay in sync with.
func checkUnpairedMultiBackend(m matrix.Matrix, pairs []pair) []Finding {
	paired := map[string]bool{}
	for _, p := range pairs {
		paired[p.Left] = true
		paired[p.Right] = true
	}

	var findings []Finding
	for _, variant := range m.Variants {
		if variant.PrimaryPackageSource != matrix.SourceMultiBackendBranch {
			continue
		}
		if !paired[variant.Name] {
			findings = append(findings, warnf(variant.Name,
				"multi-backend variant has no declared pair"))
		}
	}
	return findings
}

func errorf(variant, message string) Finding {
	return Finding{Severity: SeverityError, Variant: variant, Message: message}
}

func warnf(variant, message string) Finding {
	return Finding{Severity: SeverityWarning, Variant: variant, Message: message}
}

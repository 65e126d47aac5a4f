// Where: internal/app/variant.go
// What: Variant add/remove commands.
// Why: Edit the matrix without hand-writing YAML, keeping pairs intact.
package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/buildfleet/imx/internal/interaction"
	"github.com/buildfleet/imx/internal/lint"
	"github.com/buildfleet/imx/internal/matrix"
)

// runVariantAdd appends a variant, prompting for any missing axis values.
// The edited matrix is linted before it is written back.
func runVariantAdd(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	variant, err := collectVariant(cli.Variant.Add, deps.Prompter)
	if err != nil {
		return exitWithError(out, err)
	}
	if _, exists := m.Find(variant.Name); exists {
		return exitWithError(out, fmt.Errorf("variant %q already exists", variant.Name))
	}

	m.Variants = append(m.Variants, variant)
	findings := lint.Check(m)
	for _, finding := range findings {
		fmt.Fprintln(out, finding)
	}
	if lint.HasErrors(findings) {
		return exitWithError(out, fmt.Errorf("refusing to add %q: matrix would have errors", variant.Name))
	}

	if err := matrix.Save(path, m); err != nil {
		return exitWithError(out, err)
	}
	fmt.Fprintf(out, "Added variant %s\n", variant.Name)
	return 0
}

// collectVariant merges flags and prompts into a complete variant.
func collectVariant(cmd VariantAddCmd, prompter interaction.Prompter) (matrix.Variant, error) {
	name := strings.TrimSpace(cmd.Name)
	computeValue := strings.TrimSpace(cmd.Compute)
	primaryValue := strings.TrimSpace(cmd.PrimarySource)
	depsValue := strings.TrimSpace(cmd.DepsSource)

	interactive := prompter != nil
	if name == "" {
		if !interactive {
			return matrix.Variant{}, fmt.Errorf("variant name is required")
		}
		value, err := prompter.Input("Variant name", nil)
		if err != nil {
			return matrix.Variant{}, err
		}
		name = strings.TrimSpace(value)
		if name == "" {
			return matrix.Variant{}, fmt.Errorf("variant name is required")
		}
	}

	if computeValue == "" {
		if !interactive {
			return matrix.Variant{}, fmt.Errorf("--compute is required")
		}
		value, err := prompter.Select("Compute target", enumStrings(matrix.ComputeTargets()))
		if err != nil {
			return matrix.Variant{}, err
		}
		computeValue = value
	}
	compute, err := matrix.ParseComputeTarget(computeValue)
	if err != nil {
		return matrix.Variant{}, err
	}

	if primaryValue == "" {
		if !interactive {
			return matrix.Variant{}, fmt.Errorf("--primary-source is required")
		}
		value, err := prompter.Select("Primary package source", enumStrings(matrix.PrimarySources()))
		if err != nil {
			return matrix.Variant{}, err
		}
		primaryValue = value
	}
	primary, err := matrix.ParsePrimarySource(primaryValue)
	if err != nil {
		return matrix.Variant{}, err
	}

	if depsValue == "" {
		if !interactive {
			return matrix.Variant{}, fmt.Errorf("--deps-source is required")
		}
		value, err := prompter.Select("Other dependencies source", enumStrings(matrix.DependencySources()))
		if err != nil {
			return matrix.Variant{}, err
		}
		depsValue = value
	}
	depsSource, err := matrix.ParseDependencySource(depsValue)
	if err != nil {
		return matrix.Variant{}, err
	}

	return matrix.Variant{
		Name:                    name,
		ComputeTarget:           compute,
		PrimaryPackageSource:    primary,
		OtherDependenciesSource: depsSource,
		Pair:                    strings.TrimSpace(cmd.Pair),
	}, nil
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = string(value)
	}
	return out
}

// runVariantRemove deletes a variant after confirmation. Removing one half of
// a pair is refused unless --force, which also clears the dangling reference.
func runVariantRemove(cli CLI, deps Dependencies, out io.Writer) int {
	m, path, err := loadMatrix(cli, deps)
	if err != nil {
		return exitWithError(out, err)
	}

	name := cli.Variant.Remove.Name
	if _, exists := m.Find(name); !exists {
		return exitWithError(out, fmt.Errorf("variant %q does not exist", name))
	}

	pairedWith := ""
	for _, variant := range m.Variants {
		if variant.Name != name && variant.Pair == name {
			pairedWith = variant.Name
		}
		if variant.Name == name && variant.Pair != "" {
			pairedWith = variant.Pair
		}
	}
	if pairedWith != "" && !cli.Variant.Remove.Force {
		return exitWithError(out, fmt.Errorf(
			"variant %q is paired with %q; remove the pairing first or use --force", name, pairedWith))
	}

	if !cli.Variant.Remove.Yes {
		if !isTerminal(os.Stdin) {
			return exitWithError(out, fmt.Errorf("variant remove requires --yes in non-interactive mode"))
		}
		confirmed, err := promptYesNo(fmt.Sprintf("Remove variant %q?", name))
		if err != nil {
			return exitWithError(out, err)
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted.")
			return 1
		}
	}

	kept := make([]matrix.Variant, 0, len(m.Variants)-1)
	for _, variant := range m.Variants {
		if variant.Name == name {
			continue
		}
		if variant.Pair == name {
			variant.Pair = ""
		}
		kept = append(kept, variant)
	}
	m.Variants = kept

	if err := matrix.Save(path, m); err != nil {
		return exitWithError(out, err)
	}
	fmt.Fprintf(out, "Removed variant %s\n", name)
	return 0
}

// Where: internal/matrix/scaffold.go
// What: Default matrix used by the init command.
// Why: Seed new repositories with the standard CI image set.
package matrix

// Default returns the starter matrix: one CPU image, one plain GPU image, and
// the three GPU flavors that vary the primary package source.
func Default() Matrix {
	return Matrix{
		Version:        CurrentVersion,
		ImagePrefix:    "peft-ci",
		PrimaryPackage: "bitsandbytes",
		Variants: []Variant{
			{
				Name:                    "peft-cpu",
				ComputeTarget:           ComputeCPU,
				PrimaryPackageSource:    SourceMainBranch,
				OtherDependenciesSource: SourceMainBranch,
			},
			{
				Name:                    "peft-gpu",
				ComputeTarget:           ComputeGPU,
				PrimaryPackageSource:    SourceMainBranch,
				OtherDependenciesSource: SourceMainBranch,
			},
			{
				Name:                    "peft-gpu-bnb-source",
				ComputeTarget:           ComputeGPU,
				PrimaryPackageSource:    SourceMainBranch,
				OtherDependenciesSource: SourceMainBranch,
				Pair:                    "peft-gpu-bnb-multi-source",
			},
			{
				Name:                    "peft-gpu-bnb-multi-source",
				ComputeTarget:           ComputeGPU,
				PrimaryPackageSource:    SourceMultiBackendBranch,
				OtherDependenciesSource: SourceMainBranch,
			},
			{
				Name:                    "peft-gpu-bnb-latest",
				ComputeTarget:           ComputeGPU,
				PrimaryPackageSource:    SourceMainBranch,
				OtherDependenciesSource: SourceLatestRelease,
			},
		},
	}
}

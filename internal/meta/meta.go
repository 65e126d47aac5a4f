// Where: internal/meta/meta.go
// What: Tool-local metadata constants.
// Why: Keep naming and layout decisions in one place.
package meta

const (
	// Project Identity
	AppName     = "imx"
	Slug        = "imx"
	EnvPrefix   = "IMX"
	LabelPrefix = "io.buildfleet.imx"

	// Directory Layout
	HomeDir   = ".imx"
	OutputDir = ".imx"

	// Default File Names
	MatrixFile  = "image-matrix.yaml"
	BakeFile    = "docker-bake.json"
	ReadmeFile  = "README.md"
	ReleaseLock = "releases.lock.yaml"
)

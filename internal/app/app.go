// Where: internal/app/app.go
// What: CLI entrypoint logic.
// Why: Provide a testable command dispatcher.
package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/buildfleet/imx/internal/config"
	"github.com/buildfleet/imx/internal/version"
)

// CLI defines the command-line interface structure parsed by Kong.
// It contains global flags and all subcommand definitions.
type CLI struct {
	Matrix  string `short:"m" help:"Path to the matrix file (default: image-matrix.yaml)"`
	EnvFile string `name:"env-file" help:"Path to .env file"`

	Init    InitCmd    `cmd:"" help:"Create a starter matrix file"`
	List    ListCmd    `cmd:"" help:"List image variants"`
	Lint    LintCmd    `cmd:"" help:"Check the matrix for axis and pairing defects"`
	Render  RenderCmd  `cmd:"" help:"Render the bake definition and variant README"`
	Resolve ResolveCmd `cmd:"" help:"Resolve and pin latest package releases"`
	Build   BuildCmd   `cmd:"" help:"Build variant images with docker buildx bake"`
	Publish PublishCmd `cmd:"" help:"Upload rendered artifacts and record build state"`
	Variant VariantCmd `cmd:"" help:"Manage variants"`
	Config  ConfigCmd  `cmd:"" name:"config" help:"Manage global configuration"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type VersionCmd struct{}

type (
	InitCmd struct {
		Force bool `help:"Overwrite an existing matrix file"`
	}
	ListCmd struct{}
	LintCmd struct{}
)

type RenderCmd struct {
	Tag    string `help:"Image tag for rendered references" default:"latest"`
	OutDir string `name:"out-dir" help:"Output directory (default: .imx next to the matrix)"`
}

type ResolveCmd struct {
	DryRun bool `name:"dry-run" help:"Print versions without writing the lock file"`
}

type BuildCmd struct {
	Targets []string `arg:"" optional:"" help:"Variant or group names (default: all)"`
	Tag     string   `help:"Image tag" default:"latest"`
	Check   bool     `help:"Only report which variant images already exist locally"`
	NoCache bool     `name:"no-cache" help:"Do not use cache when building images"`
	Push    bool     `help:"Push images after building"`
	Verbose bool     `short:"v" help:"Enable verbose build output"`
}

type PublishCmd struct {
	Bucket string `help:"Artifact bucket (default: from global config)"`
	Table  string `help:"Build-state table (default: from global config)"`
	Tag    string `help:"Image tag recorded in build state" default:"latest"`
	Yes    bool   `short:"y" help:"Skip confirmation prompt"`
}

type VariantCmd struct {
	Add    VariantAddCmd    `cmd:"" help:"Add a variant"`
	Remove VariantRemoveCmd `cmd:"" help:"Remove a variant"`
}

type VariantAddCmd struct {
	Name          string `arg:"" optional:"" help:"Variant name"`
	Compute       string `help:"Compute target (cpu or gpu)"`
	PrimarySource string `name:"primary-source" help:"Primary package source"`
	DepsSource    string `name:"deps-source" help:"Other dependencies source"`
	Pair          string `help:"Name of the variant this one must stay in sync with"`
}

type VariantRemoveCmd struct {
	Name  string `arg:"" help:"Variant name"`
	Yes   bool   `short:"y" help:"Skip confirmation prompt"`
	Force bool   `help:"Remove even when another variant is paired with it"`
}

type ConfigCmd struct {
	Set  ConfigSetCmd  `cmd:"" help:"Set a global config value"`
	Show ConfigShowCmd `cmd:"" help:"Show global configuration"`
}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"One of: matrix-path, registry, index-url, bucket, table, region, endpoint"`
	Value string `arg:"" help:"Value to set"`
}

type ConfigShowCmd struct{}

// Run is the main entry point for CLI command execution.
// It parses the command-line arguments, identifies the requested command,
// and dispatches to the appropriate handler. Returns 0 on success, 1 on error.
func Run(args []string, deps Dependencies) int {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if err := config.EnsureGlobalConfig(); err != nil {
		return exitWithError(out, err)
	}

	// Handle no arguments: show current matrix and configuration
	if len(args) == 0 {
		return runInfo(CLI{}, deps, out)
	}

	cli := CLI{}
	parser, err := kong.New(&cli)
	if err != nil {
		return exitWithError(out, err)
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return exitWithError(out, err)
	}

	// Load environment file if provided or if .env exists in current directory
	if cli.EnvFile != "" {
		if err := godotenv.Load(cli.EnvFile); err != nil {
			fmt.Fprintf(out, "Warning: failed to load env file %s: %v\n", cli.EnvFile, err)
		}
	} else if _, statErr := os.Stat(".env"); statErr == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(out, "Warning: failed to load .env: %v\n", err)
		}
	}

	command := ctx.Command()
	if exitCode, handled := dispatchCommand(command, cli, deps, out); handled {
		return exitCode
	}

	fmt.Fprintln(out, "unknown command")
	return 1
}

type commandHandler func(CLI, Dependencies, io.Writer) int

type prefixHandler struct {
	prefix  string
	handler commandHandler
}

func dispatchCommand(command string, cli CLI, deps Dependencies, out io.Writer) (int, bool) {
	exactHandlers := map[string]commandHandler{
		"init":        runInit,
		"list":        runList,
		"lint":        runLint,
		"render":      runRender,
		"resolve":     runResolve,
		"build":       runBuild,
		"publish":     runPublish,
		"variant add": runVariantAdd,
		"config show": runConfigShow,
		"version":     func(_ CLI, _ Dependencies, out io.Writer) int { return runVersion(out) },
	}

	if handler, ok := exactHandlers[command]; ok {
		return handler(cli, deps, out), true
	}

	prefixHandlers := []prefixHandler{
		{prefix: "build", handler: runBuild},
		{prefix: "variant add", handler: runVariantAdd},
		{prefix: "variant remove", handler: runVariantRemove},
		{prefix: "config set", handler: runConfigSet},
	}

	for _, entry := range prefixHandlers {
		if strings.HasPrefix(command, entry.prefix) {
			return entry.handler(cli, deps, out), true
		}
	}

	return 1, false
}

// runVersion prints the version information of the CLI.
func runVersion(out io.Writer) int {
	fmt.Fprintln(out, version.GetVersion())
	return 0
}

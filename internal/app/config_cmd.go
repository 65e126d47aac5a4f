// Where: internal/app/config_cmd.go
// What: Config command.
// Why: Manage the handful of global defaults without editing YAML.
package app

import (
	"fmt"
	"io"

	"github.com/buildfleet/imx/internal/config"
)

// runConfigSet updates one key in the global config file.
func runConfigSet(cli CLI, _ Dependencies, out io.Writer) int {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return exitWithError(out, err)
	}
	cfg, err := config.LoadGlobalConfig(path)
	if err != nil {
		cfg = config.DefaultGlobalConfig()
	}

	key := cli.Config.Set.Key
	value := cli.Config.Set.Value
	switch key {
	case "matrix-path":
		cfg.MatrixPath = value
	case "registry":
		cfg.Registry = value
	case "index-url":
		cfg.IndexURL = value
	case "bucket":
		cfg.ArtifactBucket = value
	case "table":
		cfg.StateTable = value
	case "region":
		cfg.AWSRegion = value
	case "endpoint":
		cfg.AWSEndpoint = value
	default:
		return exitWithError(out, fmt.Errorf("unknown config key: %s", key))
	}

	if err := config.SaveGlobalConfig(path, cfg); err != nil {
		return exitWithError(out, err)
	}
	fmt.Fprintf(out, "Set %s\n", key)
	return 0
}

// runConfigShow prints the global config values.
func runConfigShow(_ CLI, _ Dependencies, out io.Writer) int {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return exitWithError(out, err)
	}
	cfg, err := config.LoadGlobalConfig(path)
	if err != nil {
		cfg = config.DefaultGlobalConfig()
	}

	fmt.Fprintf(out, "config file:  %s\n", path)
	fmt.Fprintf(out, "matrix-path:  %s\n", cfg.MatrixPath)
	fmt.Fprintf(out, "registry:     %s\n", cfg.Registry)
	fmt.Fprintf(out, "index-url:    %s\n", cfg.IndexURL)
	fmt.Fprintf(out, "bucket:       %s\n", cfg.ArtifactBucket)
	fmt.Fprintf(out, "table:        %s\n", cfg.StateTable)
	fmt.Fprintf(out, "region:       %s\n", cfg.AWSRegion)
	fmt.Fprintf(out, "endpoint:     %s\n", cfg.AWSEndpoint)
	return 0
}

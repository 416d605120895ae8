package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	vikiniconfig "github.com/wyemhu12/vikini-sub002/cli/config"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitError       = 1
	exitConfigError = 2
)

// ConfigFlag points at a vikini.yaml file. Values in it act as defaults for
// command flags; explicitly set flags always win.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to config file",
	Value:   vikiniconfig.DefaultPath,
	EnvVars: []string{"VIKINI_CONFIG"},
}

// loadConfig reads the --config file. A missing default file yields an
// empty config; a missing file named explicitly is an error. An explicit
// empty path skips config loading.
func loadConfig(c *cli.Context) (*vikiniconfig.Config, error) {
	path := c.String("config")
	if path == "" {
		return &vikiniconfig.Config{}, nil
	}
	cfg, err := vikiniconfig.LoadOptional(path, c.IsSet("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return cfg, nil
}

// configVal reads a field from a possibly nil config.
func configVal[T any](cfg *vikiniconfig.Config, get func(*vikiniconfig.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag value when set explicitly, else the config
// value, else the flag default.
func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int(name)
	}
	return fromConfig
}

func resolveInt64(c *cli.Context, name string, fromConfig int64) int64 {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int64(name)
	}
	return fromConfig
}

func resolveBool(c *cli.Context, name string, fromConfig bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fromConfig || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fromConfig time.Duration) time.Duration {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Duration(name)
	}
	return fromConfig
}

// configError wraps a validation failure in the config exit code.
func configError(err error) error {
	return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitConfigError)
}

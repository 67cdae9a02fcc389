package cmdline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/ecarrara/oci-registry-client/impl/config"
	"github.com/ecarrara/oci-registry-client/impl/globals"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. concurrency) if the user does not override
var cfg = config.Configuration{}

// cmds is for the command line parser urfave/cli
var cmds = &cli.Command{
	Name:  globals.ProgramName,
	Usage: "a pull client for OCI distribution registries",
	// define this or the parser terminates the program
	ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "error",
			Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
			Destination: &cfg.LogLevel,
			Validator: func(lvl string) error {
				validValues := []string{"debug", "warn", "info", "error"}
				if !slices.Contains(validValues, strings.ToLower(lvl)) {
					return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogLevel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "A file to load configuration values from (cmdline overrides file settings)",
			Destination: &cfg.ConfigFile,
			Validator: func(path string) error {
				if fi, err := os.Stat(path); err != nil {
					return fmt.Errorf("file not found")
				} else if fi.IsDir() {
					return fmt.Errorf("not a file")
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ConfigFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "log-file",
			Value:       "",
			Usage:       "log to the specified file rather than the console",
			Destination: &cfg.LogFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "registry",
			Value:       config.DockerHub,
			Usage:       "The registry for image references that don't begin with a registry host",
			Destination: &cfg.DefaultRegistry,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.DefaultRegistry = true
				return nil
			},
		},
		&cli.IntFlag{
			Name:        "pull-timeout",
			Value:       globals.DefaultPullTimeout,
			Usage:       "The max time for a command in milliseconds before timing out",
			Destination: &cfg.PullTimeout,
			Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
				fromCmdline.PullTimeout = true
				return nil
			},
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "manifest",
			Usage:     "Displays the image manifest for a platform",
			ArgsUsage: "<image>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return setCommand("manifest", cmd)
			},
			Flags: platformFlags(),
		},
		{
			Name:      "list",
			Usage:     "Displays the platforms in the manifest list of an image",
			ArgsUsage: "<image>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return setCommand("list", cmd)
			},
		},
		{
			Name:      "pull",
			Usage:     "Downloads the layers of an image for a platform",
			ArgsUsage: "<image>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return setCommand("pull", cmd)
			},
			Flags: append(platformFlags(),
				&cli.StringFlag{
					Name:        "out-dir",
					Value:       ".",
					Usage:       "The directory to write layers to",
					Destination: &cfg.PullConfig.OutDir,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.OutDir = true
						return nil
					},
				},
				&cli.IntFlag{
					Name:        "concurrency",
					Value:       globals.DefaultConcurrency,
					Usage:       "The max number of layers to download at the same time",
					Destination: &cfg.PullConfig.Concurrency,
					Validator: func(n int64) error {
						if n < 1 {
							return fmt.Errorf("must be at least 1")
						}
						return nil
					},
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Concurrency = true
						return nil
					},
				},
				&cli.IntFlag{
					Name:        "chunk-size",
					Value:       globals.DefaultChunkSize,
					Usage:       "The max number of bytes per read from the registry",
					Destination: &cfg.PullConfig.ChunkSize,
					Validator: func(n int64) error {
						if n < 1 {
							return fmt.Errorf("must be at least 1")
						}
						return nil
					},
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.ChunkSize = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "skip-verify",
					Value:       false,
					Usage:       "Does not verify layer content against the layer digest",
					Destination: &cfg.PullConfig.SkipVerify,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.SkipVerify = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "fail-fast",
					Value:       false,
					Usage:       "Cancels the remaining layer downloads when one layer fails",
					Destination: &cfg.PullConfig.FailFast,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.FailFast = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "quiet",
					Value:       false,
					Usage:       "Does not display download progress",
					Destination: &cfg.PullConfig.Quiet,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.Quiet = true
						return nil
					},
				},
				&cli.IntFlag{
					Name:        "metrics-port",
					Value:       0,
					Usage:       "Serves Prometheus metrics on the port while pulling (zero disables)",
					Destination: &cfg.MetricsPort,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.MetricsPort = true
						return nil
					},
				},
			),
		},
		{
			Name:  "version",
			Usage: "Displays the version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "version"
				return nil
			},
		},
	},
}

// platformFlags are the flags that select an image from a manifest list
func platformFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "os",
			Value:       runtime.GOOS,
			Usage:       "The operating system to select the image for",
			Destination: &cfg.Os,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Os = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "arch",
			Value:       runtime.GOARCH,
			Usage:       "The architecture to select the image for",
			Destination: &cfg.Arch,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Arch = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "variant",
			Value:       "",
			Usage:       "The architecture variant to select the image for, e.g. 'v8'",
			Destination: &cfg.Variant,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Variant = true
				return nil
			},
		},
	}
}

// setCommand records the sub-command and its one image argument
func setCommand(command string, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("%s: expected one image reference, got %d args", command, cmd.Args().Len())
	}
	fromCmdline.Command = command
	fromCmdline.Image = cmd.Args().First()
	return nil
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("pull", "list", etc.) and the image
//     argument. If the command is the empty string then no sub-command was specified in which
//     case the parser auto-displays help. This struct also has flags telling you which
//     configuration values were provided by the user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := cmds.Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/knes1/elktail-release/internal/domain/entities"
	"github.com/knes1/elktail-release/internal/domain/interfaces"
	"github.com/knes1/elktail-release/internal/domain/interfaces/repositories"
	"github.com/knes1/elktail-release/internal/external-adapters/yaml"
	"github.com/knes1/elktail-release/internal/external-adapters/zaplog"
)

// envPrefix namespaces environment overrides, e.g. ELKTAIL_RELEASE_OUTPUT_DIR
const envPrefix = "ELKTAIL_RELEASE"

// app carries state shared by every subcommand of one invocation
type app struct {
	v      *viper.Viper
	logger *zaplog.Logger
}

// Execute runs the CLI with os.Args
func Execute() error {
	a := newApp()
	return a.execute(context.Background(), a.rootCmd())
}

func newApp() *app {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
	return a
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

// execute runs cmd and flushes the logger whether or not the command failed
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	defer a.sync()
	return cmd.ExecuteContext(ctx)
}

func (a *app) sync() {
	if a.logger != nil {
		a.logger.Sync()
	}
}

func (a *app) rootCmd() *cobra.Command {
	buildCmd := newBuildCmd(a)

	rootCmd := &cobra.Command{
		Use:   "elktail-release",
		Short: "Cross-compile elktail and package release archives",
		Long: `elktail-release builds elktail for every configured target platform and
packages each binary into a zip or tar.gz archive in the release directory.

Run without a subcommand to build every target into ./release.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zaplog.New(zaplog.Config{
				Level:      a.v.GetString("log_level"),
				Format:     a.v.GetString("log_format"),
				LogFile:    a.v.GetString("log_file"),
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
				Name:       "elktail-release",
			}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		// With no subcommand behave exactly like "build" with its defaults
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := buildCmd.PreRunE(buildCmd, args); err != nil {
				return err
			}
			return buildCmd.RunE(cmd, args)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "release definition file (default: ./release.yml if present, else built-in targets)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-file", "", "also write JSON logs to this file (rotated)")
	mustBind(a.v, "config", flags.Lookup("config"))
	mustBind(a.v, "log_level", flags.Lookup("log-level"))
	mustBind(a.v, "log_format", flags.Lookup("log-format"))
	mustBind(a.v, "log_file", flags.Lookup("log-file"))

	rootCmd.AddCommand(buildCmd, newTargetsCmd(a), newVerifyCmd(a), newVersionCmd())
	return rootCmd
}

// loadDefinition reads the release definition and applies flag/env overrides
func (a *app) loadDefinition(ctx context.Context) (*entities.ReleaseDefinition, error) {
	path := a.v.GetString("config")
	var repo repositories.DefinitionRepository = yaml.NewDefinitionRepository(path, path != "")

	def, err := repo.GetDefinition(ctx)
	if err != nil {
		return nil, err
	}
	a.log().Debug("Loaded release definition",
		interfaces.F("config", path),
		interfaces.F("project", def.ProjectName),
		interfaces.F("targets", len(def.Targets())),
	)
	if dir := a.v.GetString("output_dir"); dir != "" {
		def = def.WithOutputDir(dir)
	}
	return def, nil
}

func (a *app) log() interfaces.Logger {
	if a.logger == nil {
		return &interfaces.NoOpLogger{}
	}
	return a.logger
}

// mustBind ties a config key to a flag; a missing flag is a programming error
func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// Package cmd implements the forumchain command line: chain database
// initialization, the block-producing node, and snapshot import/export.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/forumchain/forumchain/observability"
)

const (
	// Prefix for configuration keys inside the environment.
	envPrefix = "FC"

	defaultConfigFile = "config.yaml"
	defaultHomeDir    = ".forumchain"
	defaultDBFile     = "chain.db"

	keyHome      = "home"
	keyConfig    = "config"
	flagLogLevel = "log-level"
)

type (
	forumchainApp struct {
		baseCmd    *cobra.Command
		baseConfig *baseConfiguration
	}

	baseConfiguration struct {
		// HomeDir holds the chain database and the default config file.
		HomeDir string
		// CfgFile is relative to HomeDir unless absolute.
		CfgFile string

		observe *observability.Observability
	}
)

func New() *forumchainApp {
	baseCmd, baseConfig := newBaseCmd()
	return &forumchainApp{baseCmd, baseConfig}
}

// Execute adds all child commands and runs the application.
func (a *forumchainApp) Execute(ctx context.Context) error {
	a.baseCmd.AddCommand(newGenesisCmd(a.baseConfig))
	a.baseCmd.AddCommand(newRunCmd(a.baseConfig))
	a.baseCmd.AddCommand(newSnapshotCmd(a.baseConfig))
	return a.baseCmd.ExecuteContext(ctx)
}

func newBaseCmd() (*cobra.Command, *baseConfiguration) {
	config := &baseConfiguration{}
	baseCmd := &cobra.Command{
		Use:           "forumchain",
		Short:         "The forumchain CLI",
		Long:          `The forumchain CLI manages the chain database and runs the block-producing node.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		// Binding cobra and viper in PersistentPreRunE of the base command
		// makes the merged configuration visible to every subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(cmd, config); err != nil {
				return fmt.Errorf("initializing configuration: %w", err)
			}
			return nil
		},
	}
	config.addConfigurationFlags(baseCmd)
	return baseCmd, config
}

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("set the %s for this invocation (default is %s)", envKey(keyHome), forumchainHomeDir()))
	cmd.PersistentFlags().StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("config file (default is $%s/%s)", envKey(keyHome), defaultConfigFile))
	cmd.PersistentFlags().String(flagLogLevel, "INFO", "logging level, one of: DEBUG, INFO, WARN, ERROR")
}

func initializeConfig(cmd *cobra.Command, config *baseConfiguration) error {
	config.initConfigFileLocation()

	v := viper.New()
	if config.configFileExists() {
		v.SetConfigFile(config.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", config.CfgFile, err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return config.initObservability(cmd)
}

// bindFlags binds each cobra flag to its associated viper configuration
// key (config file and environment variable).
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyHome || f.Name == keyConfig {
			// handled before the rest of the configuration is loaded
			return
		}
		// Environment variables can't have dashes, so --log-level binds
		// to FC_LOG_LEVEL.
		if strings.Contains(f.Name, "-") {
			suffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, suffix)); err != nil {
				errs = append(errs, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("setting flag %q value: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

// initConfigFileLocation resolves home directory and config file before
// the rest of the configuration is loaded with viper: flag first, then
// environment, then default.
func (r *baseConfiguration) initConfigFileLocation() {
	if r.HomeDir == "" {
		r.HomeDir = os.Getenv(envKey(keyHome))
		if r.HomeDir == "" {
			r.HomeDir = forumchainHomeDir()
		}
	}
	if r.CfgFile == "" {
		r.CfgFile = os.Getenv(envKey(keyConfig))
		if r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	if !filepath.IsAbs(r.CfgFile) {
		r.CfgFile = filepath.Join(r.HomeDir, r.CfgFile)
	}
}

func (r *baseConfiguration) configFileExists() bool {
	_, err := os.Stat(r.CfgFile)
	return err == nil
}

func (r *baseConfiguration) initObservability(cmd *cobra.Command) error {
	levelStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagLogLevel, err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return fmt.Errorf("parsing log level %q: %w", levelStr, err)
	}
	r.observe = observability.Default(level)
	return nil
}

func (r *baseConfiguration) dbPath() string {
	return filepath.Join(r.HomeDir, defaultDBFile)
}

func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

func forumchainHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// no home directory, use a relative default
		return defaultHomeDir
	}
	return filepath.Join(dir, defaultHomeDir)
}

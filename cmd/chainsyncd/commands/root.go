// Package commands implements the chainsyncd cobra command tree, following
// the teacher's cmd/tenderdash/commands/root.go structure: a persistent
// --home flag, environment-prefixed viper binding, and per-command config
// parsing in PersistentPreRunE.
package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/superhow/catapult-server/config"
)

const (
	homeFlag   = "home"
	envPrefix  = "CHAINSYNCD"
)

// loadedConfig is populated by PersistentPreRunE before any subcommand runs.
var loadedConfig *config.Config

// RootCommand constructs the chainsyncd root command.
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chainsyncd",
		Short: "block-chain synchronization core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			bindEnv()

			home := viper.GetString(homeFlag)
			if err := config.EnsureRoot(home); err != nil {
				return err
			}
			cfg, err := config.LoadConfigFile(home)
			if err != nil {
				return err
			}
			if v := viper.GetString("log-level"); v != "" {
				cfg.LogLevel = v
			}
			if err := cfg.ValidateBasic(); err != nil {
				return err
			}
			loadedConfig = cfg
			return nil
		},
	}

	defaultHome := os.ExpandEnv(filepath.Join("$HOME", config.DefaultHomeDir))
	cmd.PersistentFlags().String(homeFlag, defaultHome, "directory for config and data")
	cmd.PersistentFlags().String("log-level", "", "override the configured log level")

	cmd.AddCommand(InitCommand(), RunCommand())
	return cmd
}

// bindEnv mirrors the teacher's libs/cli.InitEnv: environment variables
// prefixed CHAINSYNCD_ override viper-bound flags and config values.
func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

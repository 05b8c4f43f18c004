package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/superhow/catapult-server/config"
)

// InitCommand writes a default config.toml under --home if none exists yet.
func InitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "initialize a chainsyncd home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := viper.GetString(homeFlag)
			if err := config.EnsureRoot(home); err != nil {
				return err
			}
			if err := config.WriteConfigFile(home, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("initialized chainsyncd home at %s\n", home)
			return nil
		},
	}
}

// Package commands implements the lumberctl command tree.
package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultServer = "http://localhost:8081"
)

// Config holds CLI runtime configuration.
type Config struct {
	Server  string `mapstructure:"server"`
	APIKey  string `mapstructure:"api-key"`
	Timeout time.Duration
}

// NewRootCmd builds the root command with shared flags.
func NewRootCmd() *cobra.Command {
	cobra.OnInitialize(initConfig)

	cfg := &Config{
		Server:  defaultServer,
		Timeout: 30 * time.Second,
	}

	cmd := &cobra.Command{
		Use:           "lumberctl",
		Short:         "CLI client for lumber-agent",
		Long:          "CLI client for the lumber-agent HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Reload config into struct
			return viper.Unmarshal(cfg)
		},
	}

	cmd.PersistentFlags().StringP("server", "s", defaultServer, "Agent server base URL")
	cmd.PersistentFlags().String("api-key", "", "API key for server authentication")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "HTTP request timeout")

	viper.BindPFlag("server", cmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("api-key", cmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("timeout", cmd.PersistentFlags().Lookup("timeout"))

	cmd.AddCommand(NewHealthCmd(cfg))
	cmd.AddCommand(NewExecuteCmd(cfg))
	cmd.AddCommand(NewNetworkCmd(cfg))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	// Search config in ~/.lumberctl
	viper.AddConfigPath(filepath.Join(home, ".lumberctl"))
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")

	viper.SetEnvPrefix("LUMBER")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	viper.ReadInConfig()
}

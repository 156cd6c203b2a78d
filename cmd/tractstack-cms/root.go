package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tractstack-cms",
	Short:         "CMS page and block rendering server",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (YAML); CMS_* environment variables override it")

	rootCmd.AddCommand(serveCmd, routesCmd, hashPasswordCmd)
}

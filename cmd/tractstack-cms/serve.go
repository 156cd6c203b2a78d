package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/startup"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. Paths without an application route are served as
pure CMS pages; HTML responses of named routes are decorated with their page
template. The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := startup.Initialize(cfg); err != nil {
			return fmt.Errorf("application startup failed: %w", err)
		}
		cmd.Println("Application has shut down gracefully.")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides server.port)")
}

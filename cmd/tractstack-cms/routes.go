package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/container"
	"github.com/AtRiskMedia/tractstack-cms/internal/application/services"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/server"
)

var (
	routesManifest string
	routesClean    bool
	routesHost     string
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Manage the pages bound to named routes",
}

var routesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create missing route pages and report orphans",
	Long: `Create a hybrid page for every named route that has none, plus the error
pages, and report pages whose route no longer exists.

Routes come from the server's router, or from a YAML manifest:

  routes:
    - name: home
      path: /
    - name: blog_show
      path: /blog/:slug

Examples:
  # Sync the server's routes for the default site
  tractstack-cms routes sync

  # Sync a manifest and delete orphan pages
  tractstack-cms routes sync --manifest routes.yaml --clean

  # Sync for the site answering blog.example.com
  tractstack-cms routes sync --host blog.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		logger, err := container.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Close()

		c, err := container.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close(ctx)

		var names []string
		if routesManifest != "" {
			if names, err = services.LoadRouteManifest(routesManifest); err != nil {
				return err
			}
		} else {
			names = server.New(c).Routes().Names()
		}

		site, err := c.Sites.FindDefault(ctx)
		if routesHost != "" {
			site, err = c.Sites.FindByHost(ctx, routesHost)
		}
		if err != nil {
			return fmt.Errorf("resolving site: %w", err)
		}
		if site == nil {
			return fmt.Errorf("no site found for host %q", routesHost)
		}

		result, err := c.RouteSync.Sync(ctx, site, names, routesClean)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	routesSyncCmd.Flags().StringVarP(&routesManifest, "manifest", "m", "", "YAML route manifest")
	routesSyncCmd.Flags().BoolVar(&routesClean, "clean", false, "delete pages whose route no longer exists")
	routesSyncCmd.Flags().StringVar(&routesHost, "host", "", "site host (default site when empty)")
	routesCmd.AddCommand(routesSyncCmd)
}

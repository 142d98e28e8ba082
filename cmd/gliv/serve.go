package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gliv-dev/gliv/pkg/export"
	"github.com/gliv-dev/gliv/pkg/graph"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an interactive preview page",
	Long: `Start a local web page with the selection sidebar next to the rendered
graph. The snapshot is re-read on every request, so a running 'gliv fetch'
shows up on the next reload.

Example:
  gliv serve --port 9001 --no-browser`,
	RunE: runServe,
}

func init() {
	addSelectionFlags(serveCmd)
	serveCmd.Flags().Int("port", 0, "port to listen on (default: first free port in the preview range)")
	serveCmd.Flags().Bool("no-browser", false, "do not open a browser")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := applySelectionFlags(cmd, a.cfg); err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	source := func(ctx context.Context) (*graph.Snapshot, error) {
		return a.loadSnapshot(ctx)
	}
	return export.StartPreviewWithConfig(cmd.Context(), source, a.cfg.Criteria, export.PreviewConfig{
		Port:        port,
		Zoom:        a.cfg.View.Zoom,
		OpenBrowser: !noBrowser,
	}, a.logger)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gliv-dev/gliv/pkg/config"
	"github.com/gliv-dev/gliv/pkg/export"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/watcher"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the selected issues to SVG or PNG",
	Long: `Render the stored snapshot with the configured selection. Selection
flags override the view section of the config file.

Example:
  gliv render --out graph.svg
  gliv render --project 12 --label backend --closed numbers --out graph.png
  gliv render --root 4711 --out - > tree.svg`,
	RunE: runRender,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render whenever the snapshot changes",
	Long: `Render once, then render again every time the snapshot database is
rewritten by 'gliv fetch' or 'gliv extract'.`,
	RunE: runWatch,
}

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, watchCmd} {
		addSelectionFlags(cmd)
		cmd.Flags().StringP("out", "o", "graph.svg", "output file, '-' for stdout")
		cmd.Flags().String("format", "", "svg or png (default from the output extension)")
		cmd.Flags().Int("root", 0, "only render the tree below this issue uid and its blockers")
	}
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounceDuration, "wait this long after the last change")
	watchCmd.Flags().Bool("poll", false, "poll the file instead of using filesystem notifications")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)
}

// addSelectionFlags registers the flags that override the view config.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().IntSlice("project", nil, "project ids to show (default all)")
	cmd.Flags().StringSlice("label", nil, "labels to show (default all)")
	cmd.Flags().Bool("unlabeled", true, "show issues without labels")
	cmd.Flags().String("closed", "", "closed issues: titles, numbers or hide")
	cmd.Flags().Float64("zoom", 0, "zoom factor between 1 and 3")
}

// applySelectionFlags copies the flags that were set onto v.
func applySelectionFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	v := &cfg.View
	if flags.Changed("project") {
		v.Projects, _ = flags.GetIntSlice("project")
	}
	if flags.Changed("label") {
		v.Labels, _ = flags.GetStringSlice("label")
	}
	if flags.Changed("unlabeled") {
		v.ShowUnlabeled, _ = flags.GetBool("unlabeled")
	}
	if flags.Changed("closed") {
		v.Closed, _ = flags.GetString("closed")
	}
	if flags.Changed("zoom") {
		v.Zoom, _ = flags.GetFloat64("zoom")
	}
	return cfg.Validate()
}

// view assembles the configured selection, narrowed to the tree below
// rootUID when it is set.
func (a *app) view(snap *graph.Snapshot, rootUID int) (*graph.View, error) {
	c, err := a.cfg.Criteria(snap)
	if err != nil {
		return nil, err
	}
	v := graph.Assemble(snap, c)
	if rootUID != 0 {
		tree, err := graph.BuildIssueTree(snap, rootUID)
		if err != nil {
			return nil, err
		}
		v = tree.Restrict(v)
	}
	return v, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := applySelectionFlags(cmd, a.cfg); err != nil {
		return err
	}
	return a.render(cmd)
}

func (a *app) render(cmd *cobra.Command) error {
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	root, _ := cmd.Flags().GetInt("root")

	snap, err := a.loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	v, err := a.view(snap, root)
	if err != nil {
		return err
	}

	if out == "-" {
		if format == "" {
			format = "svg"
		}
		if strings.EqualFold(format, "png") && term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("refusing to write PNG to a terminal; redirect stdout or use --out")
		}
		return export.WriteGraph(cmd.OutOrStdout(), format, v, a.cfg.View.Zoom)
	}

	if err := export.SaveGraph(export.GraphOptions{
		Path:   out,
		Format: format,
		View:   v,
		Zoom:   a.cfg.View.Zoom,
	}); err != nil {
		return err
	}
	a.logger.Info("rendered graph", zap.String("path", out), zap.String("summary", v.Summary()))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := applySelectionFlags(cmd, a.cfg); err != nil {
		return err
	}

	if err := a.render(cmd); err != nil {
		a.logger.Warn("initial render failed", zap.Error(err))
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	opts := []watcher.Option{watcher.WithDebounce(debounce), watcher.WithLogger(a.logger)}
	if poll, _ := cmd.Flags().GetBool("poll"); poll {
		opts = append(opts, watcher.WithPolling())
	}

	w := watcher.New(a.cfg.Snapshot.Path, func() {
		if err := a.render(cmd); err != nil {
			a.logger.Warn("render failed", zap.Error(err))
		}
	}, opts...)

	a.logger.Info("watching snapshot", zap.String("path", a.cfg.Snapshot.Path))
	return w.Run(cmd.Context())
}

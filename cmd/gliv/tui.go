package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/ui"
	"github.com/gliv-dev/gliv/pkg/watcher"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the snapshot in the terminal",
	Long: `Open the terminal viewer: toggle projects, pick labels, cycle how
closed issues are shown and read epic progress.

Example:
  gliv tui --watch`,
	RunE: runTUI,
}

func init() {
	addSelectionFlags(tuiCmd)
	tuiCmd.Flags().Bool("watch", false, "reload when the snapshot changes")

	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := applySelectionFlags(cmd, a.cfg); err != nil {
		return err
	}
	// Log output would tear the alternate screen.
	a.logger = a.logger.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))

	ctx := cmd.Context()
	snap, err := a.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	c, err := a.cfg.Criteria(snap)
	if err != nil {
		return err
	}

	reload := func() (*graph.Snapshot, error) {
		return a.loadSnapshot(context.Background())
	}
	m := ui.NewModel(snap, c, ui.DefaultTheme(nil)).WithReload(reload)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		w := watcher.New(a.cfg.Snapshot.Path, func() {
			s, err := reload()
			p.Send(ui.SnapshotMsg{Snapshot: s, Err: err})
		}, watcher.WithLogger(a.logger))
		go func() {
			if err := w.Run(ctx); err != nil {
				a.logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/config"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/logging"
	"github.com/gliv-dev/gliv/pkg/snapshot"
	"github.com/gliv-dev/gliv/pkg/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gliv",
	Short: "gliv - GitLab issue link visualizer",
	Long: `gliv downloads the issues, issue links and epics of a GitLab group,
resolves them into a relationship graph and renders filtered views of it.

Example:
  gliv fetch
  gliv render --label backend --closed numbers --out graph.svg
  gliv serve`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// app is the per-command environment.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// extractAndSave runs resolution and aggregation and stores the result.
func (a *app) extractAndSave(ctx context.Context, rec *graph.Records) (*graph.Snapshot, error) {
	opts, err := a.cfg.ExtractOptions()
	if err != nil {
		return nil, err
	}
	snap, err := graph.NewExtractor(opts, a.logger).Extract(rec)
	if err != nil {
		return nil, err
	}

	db, err := snapshot.OpenDB(a.cfg.Snapshot.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

// loadSnapshot reads the stored snapshot.
func (a *app) loadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	db, err := snapshot.OpenExisting(a.cfg.Snapshot.Path)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			return nil, fmt.Errorf("%w (run 'gliv fetch' or 'gliv extract' first)", err)
		}
		return nil, err
	}
	defer db.Close()
	return db.Load(ctx)
}

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/gitlab"
	"github.com/gliv-dev/gliv/pkg/loader"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the group from GitLab and store a snapshot",
	Long: `Download projects, issues, issue links, parents and epics of the
configured GitLab group, resolve them and store the result in the snapshot
database.

Example:
  GLIV_GITLAB_TOKEN=glpat-... gliv fetch`,
	RunE: runFetch,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build a snapshot from a JSONL record file",
	Long: `Resolve records exported by another tool instead of contacting GitLab.
Each line is a project, issue or epic record.

Example:
  gliv extract --input records.jsonl`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("input", "", "JSONL record file")
	_ = extractCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(extractCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	start := time.Now()
	client, err := gitlab.NewClient(
		gitlab.Config{BaseURL: cfg.Server.URL, Token: cfg.Server.Token},
		&http.Client{Timeout: cfg.Server.Timeout},
		gitlab.NewLimiter(cfg.Server.RequestsPerSecond),
	)
	if err != nil {
		return err
	}
	downloader := gitlab.NewDownloader(client, gitlab.DownloadOptions{
		Group:       cfg.Server.Group,
		Projects:    cfg.Projects,
		Concurrency: cfg.Server.Concurrency,
	}, a.logger)

	rec, err := downloader.Download(cmd.Context())
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	snap, err := a.extractAndSave(cmd.Context(), rec)
	if err != nil {
		return err
	}

	a.logger.Info("fetch finished",
		zap.Int("issues", len(snap.Issues)),
		zap.Int("epics", len(snap.Epics)),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot with %d issues to %s\n", len(snap.Issues), cfg.Snapshot.Path)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	input, _ := cmd.Flags().GetString("input")
	rec, err := loader.LoadRecordsFromFile(input, a.logger)
	if err != nil {
		return err
	}

	snap, err := a.extractAndSave(cmd.Context(), rec)
	if err != nil {
		return err
	}

	a.logger.Info("extract finished",
		zap.Int("issues", len(snap.Issues)),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot with %d issues to %s\n", len(snap.Issues), a.cfg.Snapshot.Path)
	return nil
}

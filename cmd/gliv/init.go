package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gliv-dev/gliv/pkg/config"
	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a gliv configuration file. On a terminal the settings are asked
for interactively; otherwise the defaults are written.

Example:
  gliv init
  gliv init --path team.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("path", config.DefaultPath, "where to write the config file")
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	initCmd.Flags().Bool("defaults", false, "write the defaults without asking")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	defaults, _ := cmd.Flags().GetBool("defaults")
	if !defaults && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n\n", path)
	fmt.Fprintln(out, "Next steps:")
	if cfg.Server.Token == "" {
		fmt.Fprintln(out, "  1. Set server.token or export GLIV_GITLAB_TOKEN")
	} else {
		fmt.Fprintln(out, "  1. Keep the file private, it contains your token")
	}
	fmt.Fprintln(out, "  2. Run 'gliv fetch' to download a snapshot")
	fmt.Fprintln(out, "  3. Run 'gliv serve' or 'gliv tui' to explore it")
	return nil
}

func promptConfig(cfg *config.Config) error {
	var projects string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitLab URL").
				Value(&cfg.Server.URL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("url must start with http:// or https://")
					}
					return nil
				}),

			huh.NewInput().
				Title("Group path").
				Description("e.g. my-org/platform").
				Value(&cfg.Server.Group).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("group is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Access token (optional)").
				Description("Leave empty to use GLIV_GITLAB_TOKEN").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Server.Token),

			huh.NewInput().
				Title("Project ids (comma-separated, optional)").
				Description("Empty means every project of the group").
				Value(&projects),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Related links").
				Options(
					huh.NewOption("Drop links from issues already linked to (classic)", graph.PolicyLiteral),
					huh.NewOption("One link per issue pair", graph.PolicySymmetric),
				).
				Value(&cfg.Relations.Dedup),

			huh.NewSelect[string]().
				Title("Closed issues").
				Options(
					huh.NewOption("Hide", string(filter.ClosedHide)),
					huh.NewOption("Show numbers only", string(filter.ClosedNumbers)),
					huh.NewOption("Show titles", string(filter.ClosedTitles)),
				).
				Value(&cfg.View.Closed),

			huh.NewConfirm().
				Title("Show issues without labels?").
				Value(&cfg.View.ShowUnlabeled),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}

	cfg.Projects = config.ParseProjects(projects)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gliv-dev/gliv/pkg/updater"
	"github.com/gliv-dev/gliv/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information including commit hash and build date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			fmt.Fprintln(out, version.Full())
		} else {
			fmt.Fprintln(out, version.Info())
		}

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}
		server, _ := cmd.Flags().GetString("release-server")
		tag, link, err := updater.NewChecker(server, updater.DefaultProject).CheckForUpdates(cmd.Context(), version.Version)
		if err != nil {
			return fmt.Errorf("update check failed: %w", err)
		}
		if tag == "" {
			fmt.Fprintln(out, "gliv is up to date")
			return nil
		}
		fmt.Fprintf(out, "A newer version is available: %s\n  %s\n", tag, link)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "print verbose version information")
	versionCmd.Flags().Bool("check", false, "check for a newer release")
	versionCmd.Flags().String("release-server", "https://gitlab.com", "GitLab instance hosting gliv releases")
	rootCmd.AddCommand(versionCmd)
}

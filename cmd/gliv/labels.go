package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/gliv-dev/gliv/pkg/analysis"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Show issue counts per label",
	Long: `Print every label of the stored snapshot with its open, closed and
blocked issue counts. Blocked issues are open issues with an open blocker.

Example:
  gliv labels
  gliv labels --related 3
  gliv labels --json | jq '.stats.backend'`,
	RunE: runLabels,
}

func init() {
	labelsCmd.Flags().Bool("json", false, "print the statistics as JSON")
	labelsCmd.Flags().Int("related", 0, "also list up to N labels seen together with each label")
	rootCmd.AddCommand(labelsCmd)
}

func runLabels(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	result := analysis.ExtractLabels(snap.Issues, snap.Blocking)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	related, _ := cmd.Flags().GetInt("related")
	var cooc map[string]map[string]int
	headers := []string{"LABEL", "OPEN", "CLOSED", "BLOCKED", "TOTAL"}
	if related > 0 {
		cooc = analysis.GetLabelCooccurrence(snap.Issues)
		headers = append(headers, "SEEN WITH")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, label := range result.TopLabels {
		st := result.Stats[label]
		row := []string{
			label,
			strconv.Itoa(st.OpenCount),
			strconv.Itoa(st.ClosedCount),
			strconv.Itoa(st.Blocked),
			strconv.Itoa(st.TotalCount),
		}
		if related > 0 {
			row = append(row, strings.Join(analysis.RelatedLabels(cooc, label, related), ", "))
		}
		t.Row(row...)
	}

	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%d labels on %d issues, %d unlabeled.\n", result.LabelCount, result.IssueCount, result.UnlabeledCount)
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"bank-analytics/internal/clarify"
	"bank-analytics/internal/insight"
	"bank-analytics/internal/plan"
)

func newQueryCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:     "query <question>",
		Aliases: []string{"ask"},
		Short:   "Answer a question about the datasets",
		Example: `  bank-analytics query "which branch has the highest gold loan"
  bank-analytics query --host http://localhost:8080 -o json "total upi transactions in Q1 2024"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := s.openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer backend.Close() //nolint:errcheck

			v, err := backend.Query(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), v)
			}
			return printQueryView(cmd.OutOrStdout(), v)
		},
	}
}

func newPlanCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <question>",
		Short: "Show the execution plan for a question without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := s.openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer backend.Close() //nolint:errcheck

			v, err := backend.Plan(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), v)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Planned by %s\n\n", v.Source)
			PrintTable(cmd.OutOrStdout(), []string{"field", "value"}, planRows(v.Plan))
			return nil
		},
	}
}

// printQueryView renders an answer for a terminal. A failed answer is
// reported as an error after any clarifying questions.
func printQueryView(w io.Writer, v *QueryView) error {
	if !v.Result.Success {
		if len(v.Clarifications) > 0 {
			_, _ = fmt.Fprintln(w, clarify.FormatPrompt(v.Clarifications))
		}
		return fmt.Errorf("no answer: %s", v.Result.Error)
	}
	if v.Insights != "" {
		_, _ = fmt.Fprintln(w, v.Insights)
		_, _ = fmt.Fprintln(w)
	}
	headers, rows := insight.Table(&v.Result, viewPlan(v.Plan))
	PrintTable(w, headers, rows)
	_, _ = fmt.Fprintf(w, "\nPlanned by %s in %d ms.\n", v.Source, v.DurationMs)
	return nil
}

// viewPlan recovers the fields table headers are labelled from.
func viewPlan(m map[string]any) plan.Plan {
	var p plan.Plan
	p.Metric, _ = m["metric"].(string)
	p.GroupBy, _ = m["group_by"].(string)
	return p
}

func planRows(m map[string]any) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, planValue(m[k])})
	}
	return rows
}

func planValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/insight"
)

func newHistoryCmd(s *settings) *cobra.Command {
	var (
		maxResults int
		pageToken  string
		source     string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously answered questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := domain.QueryHistoryFilter{
				Page: domain.PageRequest{MaxResults: maxResults, PageToken: pageToken},
			}
			if source != "" {
				switch source {
				case domain.SourceLLM, domain.SourceFallback, "plan":
				default:
					return fmt.Errorf("unsupported source %q: use llm, fallback or plan", source)
				}
				filter.Source = &source
			}
			switch status {
			case "":
			case "ok", "failed":
				ok := status == "ok"
				filter.Success = &ok
			default:
				return fmt.Errorf("unsupported status %q: use 'ok' or 'failed'", status)
			}

			backend, err := s.openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer backend.Close() //nolint:errcheck

			page, err := backend.History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), page)
			}

			out := cmd.OutOrStdout()
			if len(page.Records) == 0 {
				_, _ = fmt.Fprintln(out, "No queries recorded.")
				return nil
			}
			rows := make([][]string, 0, len(page.Records))
			for _, r := range page.Records {
				state, answer := "ok", ""
				if !r.Success {
					state = "failed"
				}
				if r.Value != nil {
					answer = insight.FormatNumber(*r.Value)
				} else if r.Error != nil {
					answer = *r.Error
				}
				rows = append(rows, []string{
					r.CreatedAt.Local().Format(time.DateTime),
					r.Query,
					r.Source,
					state,
					answer,
					strconv.FormatInt(r.DurationMs, 10),
				})
			}
			PrintTable(out, []string{"when", "query", "source", "status", "answer", "ms"}, rows)
			if page.NextPageToken != "" {
				_, _ = fmt.Fprintf(out, "\nMore results: --page-token %s\n", page.NextPageToken)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", 20, "Maximum records to return")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token from a previous page")
	cmd.Flags().StringVar(&source, "source", "", "Only records planned by llm, fallback or plan")
	cmd.Flags().StringVar(&status, "status", "", "Only 'ok' or 'failed' records")

	return cmd
}

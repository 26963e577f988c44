package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bank-analytics/internal/domain"
)

type versionInfo struct {
	Version  string         `json:"version"`
	Commit   string         `json:"commit"`
	Datasets map[string]int `json:"datasets"` // name -> metric column count
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version and the dataset registry it was built with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{Version: version, Commit: commit, Datasets: map[string]int{}}
			var parts []string
			for _, ds := range domain.Datasets() {
				n := len(ds.Metrics())
				info.Datasets[ds.Name] = n
				parts = append(parts, fmt.Sprintf("%s (%d metrics)", ds.Name, n))
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "bank-analytics %s (commit: %s)\n", info.Version, info.Commit)
			_, _ = fmt.Fprintf(out, "datasets: %s\n", strings.Join(parts, ", "))
			return nil
		},
	}
}

package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the registered datasets and whether they are loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := s.openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer backend.Close() //nolint:errcheck

			infos, err := backend.Datasets(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]any{"datasets": infos})
			}
			rows := make([][]string, 0, len(infos))
			for _, d := range infos {
				rows = append(rows, []string{
					d.Name, d.File, strconv.FormatBool(d.Loaded), strconv.Itoa(d.Rows), d.DefaultMetric,
				})
			}
			PrintTable(cmd.OutOrStdout(), []string{"name", "file", "loaded", "rows", "default metric"}, rows)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/facilityops/sensor-dashboard/services/api/charts"
)

type rangeInfo struct {
	Code          string `json:"code" yaml:"code"`
	WindowMinutes int    `json:"window_minutes" yaml:"window_minutes"`
	BucketMinutes int    `json:"bucket_minutes" yaml:"bucket_minutes"`
	PageSize      int    `json:"page_size" yaml:"page_size"`
}

func installRangesCmd(app *App) {
	var output string

	rangesCmd := &cobra.Command{
		Use:   "ranges",
		Short: "List the supported time ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := make([]rangeInfo, 0, len(charts.Ranges()))
			for _, r := range charts.Ranges() {
				infos = append(infos, rangeInfo{
					Code:          r.Code(),
					WindowMinutes: int(r.Window() / time.Minute),
					BucketMinutes: int(r.BucketWidth() / time.Minute),
					PageSize:      r.PageSize(),
				})
			}
			switch output {
			case "json", "yaml":
				return writeDocument(cmd.OutOrStdout(), output, infos)
			case "text":
				for _, i := range infos {
					bucket := "raw"
					if i.BucketMinutes > 0 {
						bucket = fmt.Sprintf("%dm buckets", i.BucketMinutes)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-4s %6dm  %-12s page %d\n", i.Code, i.WindowMinutes, bucket, i.PageSize)
				}
				return nil
			}
			return fmt.Errorf("unsupported output format %q", output)
		},
	}

	rangesCmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	app.cmd.AddCommand(rangesCmd)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := svc.Stats(context.Background())

			if asJSON {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Total queries:  %d\n", stats.TotalQueries)
			fmt.Printf("Cache hits:     %d\n", stats.CacheHits)
			fmt.Printf("Cache misses:   %d\n", stats.CacheMisses)
			fmt.Printf("Hit rate:       %.1f%%\n", stats.HitRatePercent)
			fmt.Printf("Evictions:      %d\n", stats.Evictions)
			fmt.Printf("Expired:        %d\n", stats.ExpiredEntries)
			fmt.Printf("Entries:        %d\n", stats.TotalEntries)
			fmt.Printf("Avg accesses:   %.2f\n", stats.AverageAccessCount)
			fmt.Printf("Storage:        %.1f KB\n", stats.StorageKB)
			fmt.Printf("Oldest entry:   %s\n", formatTime(stats.OldestEntry))
			fmt.Printf("Newest access:  %s\n", formatTime(stats.NewestAccess))

			if stats.Error != "" {
				fmt.Printf("Storage error:  %s\n", stats.Error)
			}

			if len(stats.ByDocument) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "DOCUMENT\tENTRIES")
				for _, d := range stats.ByDocument {
					fmt.Fprintf(w, "%d\t%d\n", d.DocumentID, d.Entries)
				}
				return w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "scholarcache.yaml", "path to config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02T15:04:05")
}

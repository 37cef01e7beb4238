package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newOptimizeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sweep expired, duplicate and excess cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			report := svc.Optimize(context.Background())
			fmt.Printf("Expired removed:    %d\n", report.ExpiredRemoved)
			fmt.Printf("Duplicates removed: %d\n", report.DuplicatesRemoved)
			fmt.Printf("Evicted over cap:   %d\n", report.LRURemoved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "scholarcache.yaml", "path to config file")
	return cmd
}

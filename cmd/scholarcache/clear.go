package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if !svc.Clear(context.Background()) {
				return errors.New("cache clear failed")
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "scholarcache.yaml", "path to config file")
	return cmd
}

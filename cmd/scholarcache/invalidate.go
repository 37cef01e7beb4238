package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newInvalidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "invalidate <document-id>",
		Short: "Drop every cached answer for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[0])
			}

			svc, cleanup, err := openService(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			n := svc.InvalidateDocument(context.Background(), documentID)
			fmt.Printf("Removed %d entries for document %d.\n", n, documentID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "scholarcache.yaml", "path to config file")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var verbose bool

func main() {
	root := &cobra.Command{
		Use:     "scholarcache",
		Short:   "Document-scoped query cache for RAG pipelines",
		Version: version,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log cache internals to stderr")

	root.AddCommand(
		newStatsCmd(),
		newOptimizeCmd(),
		newClearCmd(),
		newInvalidateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

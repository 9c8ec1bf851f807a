// Command nornicgraph is the CLI front-end for the embedded graph
// database: init, serve (an interactive Cypher shell), one-shot query, and
// WAL recovery, all consumers of pkg/dbms's embedded API and nothing else.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nornicgraph",
		Short: "nornicgraph - embedded property-graph database",
		Long: `nornicgraph is an embedded property-graph database: labeled nodes
and typed directed edges carry key/value properties, queried with a small
Cypher-like language and backed by a write-ahead log and MVCC snapshot
isolation.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nornicgraph v%s (%s)\n", version, commit)
		},
	})
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newRecoverCmd())
	rootCmd.AddCommand(newStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

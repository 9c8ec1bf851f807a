package main

import (
	"fmt"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/config"
	"github.com/orneryd/nornicgraph/pkg/cypher"
	"github.com/spf13/cobra"
)

// loadConfig builds a Config from the --data-dir/--backend/--wal/--sync
// flags shared by serve, query and recover, applying NORNICGRAPH_*
// environment overrides on top exactly as config.LoadFromEnv does.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadFromEnv()

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if cmd.Flags().Changed("wal") {
		wal, _ := cmd.Flags().GetBool("wal")
		cfg.WAL.Enabled = wal
	}
	if cmd.Flags().Changed("sync-on-write") {
		sync, _ := cmd.Flags().GetBool("sync-on-write")
		cfg.WAL.SyncOnWrite = sync
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "", "data directory (default: NORNICGRAPH_STORAGE_DATA_DIR or ./data)")
	cmd.Flags().String("backend", "", "storage backend: memory or badger (default: NORNICGRAPH_STORAGE_BACKEND or memory)")
	cmd.Flags().Bool("wal", true, "enable the write-ahead log")
	cmd.Flags().Bool("sync-on-write", false, "fsync after every WAL append")
}

// printResult renders a QueryResult as a simple left-aligned table. Columns
// are printed in QueryResult.Columns order; a row missing a column (nodes
// in the same result can carry different property sets) prints an empty
// cell rather than the literal string "null" — a missing key means null.
func printResult(res *cypher.QueryResult) {
	if len(res.Columns) == 0 {
		fmt.Printf("(%d rows, %dms)\n", res.RowCount, res.ExecutionTimeMs)
		return
	}

	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells[r] = make([]string, len(res.Columns))
		for i, col := range res.Columns {
			v, ok := row[col]
			text := ""
			if ok {
				text = v.String()
			}
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	printRow(res.Columns, widths)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	printRow(sep, widths)
	for _, row := range cells {
		printRow(row, widths)
	}
	fmt.Printf("(%d rows, %dms)\n", res.RowCount, res.ExecutionTimeMs)
}

func printRow(cells []string, widths []int) {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = fmt.Sprintf("%-*s", widths[i], c)
	}
	fmt.Println(strings.Join(padded, " | "))
}

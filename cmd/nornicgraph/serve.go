package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/config"
	"github.com/orneryd/nornicgraph/pkg/dbms"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the database and run an interactive Cypher shell",
		Long: `serve opens the database named by --data-dir and reads Cypher
statements from standard input, one per line, printing the result table for
each. There is no network listener here — nornicgraph is an embedded
database; serve is the one-process REPL front-end over the embedded API.
A failed statement prints its error kind and message and the shell keeps
reading; type exit or quit (or press Ctrl+D) to close the database and
leave.`,
		RunE: runServe,
	}
	addConnectionFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openWithRecovery(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("nornicgraph shell")
	fmt.Printf("backend=%s data_dir=%s wal=%v\n", cfg.Storage.Backend, cfg.Storage.DataDir, cfg.WAL.Enabled)
	fmt.Println("type exit or quit to leave")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("nornicgraph> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		res, err := db.Execute(line, nil)
		if err != nil {
			fmt.Println(err)
			continue
		}
		printResult(res)
	}
	fmt.Println()
	return scanner.Err()
}

// openWithRecovery opens db per cfg, replaying its WAL first when the
// backend itself has no durability of its own — the in-memory engine
// starts every process empty, so its only route back to a prior session's
// state is the segmented log on disk. The badger backend is already
// durable at mutation granularity, so replaying the WAL over it as well
// would double-apply every committed mutation.
func openWithRecovery(cfg *config.Config) (*dbms.Database, error) {
	db, err := dbms.Open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend != "memory" || !cfg.WAL.Enabled {
		return db, nil
	}
	walDir := filepath.Join(cfg.Storage.DataDir, "wal")
	if _, statErr := os.Stat(walDir); statErr != nil {
		return db, nil
	}
	if err := db.Recover(walDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("replaying wal: %w", err)
	}
	return db, nil
}

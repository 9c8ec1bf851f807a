package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [cypher statement]",
		Short: "Execute a single Cypher statement and print its result",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	addConnectionFlags(cmd)
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openWithRecovery(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Execute(args[0], nil)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	printResult(res)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print node/edge counts, WAL stats, and deadlock-detector stats",
		RunE:  runStats,
	}
	addConnectionFlags(cmd)
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openWithRecovery(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	nodes, err := db.NodeCount()
	if err != nil {
		return err
	}
	edges, err := db.EdgeCount()
	if err != nil {
		return err
	}
	fmt.Printf("nodes: %d\n", nodes)
	fmt.Printf("edges: %d\n", edges)

	if walStats, ok := db.WALStats(); ok {
		fmt.Printf("wal:   %s\n", walStats)
	} else {
		fmt.Println("wal:   disabled")
	}

	deadlock := db.DeadlockStats()
	fmt.Printf("locks: held=%d waiting_txns=%d\n",
		deadlock.LockedResources, deadlock.WaitingTransactions)
	return nil
}

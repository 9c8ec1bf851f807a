package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new nornicgraph data directory",
		RunE:  runInit,
	}
	cmd.Flags().String("data-dir", "./data", "data directory to create")
	cmd.Flags().String("backend", "badger", "storage backend to configure: memory or badger")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	backend, _ := cmd.Flags().GetString("backend")

	if backend != "memory" && backend != "badger" {
		return fmt.Errorf("invalid backend %q (want memory or badger)", backend)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configPath := filepath.Join(dataDir, "nornicgraph.yaml")
	content := fmt.Sprintf(`storage:
  data_dir: %s
  backend: %s
wal:
  enabled: true
  segment_size: 1000
  sync_on_write: false
  checkpoint_threshold: 1000
index:
  default_kind: hash
`, dataDir, backend)

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Println("Initialized nornicgraph data directory:", dataDir)
	fmt.Println("Config written to:", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  nornicgraph serve --data-dir", dataDir)
	return nil
}

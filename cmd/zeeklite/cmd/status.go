package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seward/zeeklite/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database contents and the last run",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	status, err := store.Status(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("database: %s (%.1f MB)\n", cfg.Database, status.SizeMB)
	fmt.Printf("processed files: %d\n", status.ProcessedFiles)
	fmt.Printf("rows imported: %d\n", status.RowsImported)

	if status.LastRun != nil {
		run := status.LastRun
		fmt.Printf("last run: %s (imported %d, skipped %d, failed %d)\n",
			run.FinishedAt.Format(time.RFC3339),
			run.FilesImported, run.FilesSkipped, run.FilesFailed)
	} else {
		fmt.Println("last run: never")
	}

	if len(status.Categories) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tROWS")
		for _, c := range status.Categories {
			fmt.Fprintf(w, "%s\t%d\n", c.Table, c.Rows)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seward/zeeklite/internal/queries"
	"github.com/seward/zeeklite/internal/storage"
)

var runAll bool

var queryCmd = &cobra.Command{
	Use:   "query [name]",
	Short: "Run a canned dashboard query",
	Long: `Runs one of the built-in reporting queries against the database and
prints the result. With no arguments, lists the available queries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&runAll, "all", false, "run every query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !runAll {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, q := range queries.All() {
			fmt.Fprintf(w, "%s\t%s\n", q.Name, q.Description)
		}
		return w.Flush()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if runAll {
		results, err := queries.RunAll(cmd.Context(), store)
		if err != nil {
			return err
		}
		for i, res := range results {
			if i > 0 {
				fmt.Println()
			}
			printResult(res)
		}
		return nil
	}

	q, ok := queries.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown query %q, run without arguments to list", args[0])
	}
	res, err := queries.Run(cmd.Context(), store, q)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *queries.Result) {
	fmt.Printf("== %s\n", res.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

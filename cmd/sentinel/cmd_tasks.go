package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/pipeline"
	"FuturesSentinel/internal/scheduler"
)

var countTable string

// pruneCmd runs one retention sweep
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete trades older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sched := scheduler.NewScheduler(cmd.Context(), st, nil, nil, nil, cfg.Database.Retention)
		n, cutoff, err := sched.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatPruneResult(n, cutoff))
		return nil
	},
}

// regressCmd runs the regression pipeline once and prints the report
var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Adjust the target series for the reference series and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		adj, err := newAdjuster(cfg)
		if err != nil {
			return err
		}
		pipe := pipeline.New(st, adj, nil, nil, cfg.Regression.Target, cfg.Regression.Reference)
		report, err := pipe.RunFromStore(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), notifier.FormatRegressionReport(report))
		return nil
	},
}

// countCmd prints the row count of a table
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of rows in the trades table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		table := countTable
		if table == "" {
			table = st.Table()
		}
		n, err := st.CountRows(cmd.Context(), table)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatRowCount(table, n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd, regressCmd, countCmd)
	countCmd.Flags().StringVar(&countTable, "table", "", "Table to count (default: configured trades table)")
}

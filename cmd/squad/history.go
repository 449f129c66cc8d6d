package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <template-id>",
	Short: "Show recent runs for a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		storePath := cfg.Store.Path
		if storePath == "" {
			storePath = store.DefaultPath()
		}
		db, err := store.Open(storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}

		runs, err := db.ListRuns(args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Printf("no runs recorded for %s\n", args[0])
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %s  %6.1f (%s)\n",
				run.CreatedAt.Local().Format("2006-01-02 15:04"),
				shortID(run.RunID), run.OverallScore, run.Grade)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")
}

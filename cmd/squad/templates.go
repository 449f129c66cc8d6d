package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/composer"
	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available team templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		source, err := templates.NewSource(cfg.Templates.Dir, composer.DefaultRegistry())
		if err != nil {
			return fmt.Errorf("open template source: %w", err)
		}
		defer source.Close()

		summaries, err := source.List()
		if err != nil {
			return err
		}

		for _, s := range summaries {
			fmt.Printf("%-20s %-30s %-11s %d rules\n", s.ID, s.Name, s.Strategy, s.RuleCount)
		}
		return nil
	},
}

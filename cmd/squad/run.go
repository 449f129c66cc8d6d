package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/pkg/models"
)

var (
	runAnswers   []string
	runReadiness bool
	runOffline   bool
)

var runCmd = &cobra.Command{
	Use:   "run <template-id>",
	Short: "Compose and execute an agent team for a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		eng, cleanup, err := buildEngine(cfg, runReadiness, runOffline)
		if err != nil {
			return err
		}
		defer cleanup()

		answers, err := parseAnswers(runAnswers)
		if err != nil {
			return err
		}
		resp := models.NewFormResponse(args[0], answers)

		report, err := eng.Execute(cmd.Context(), args[0], resp)
		if err != nil {
			return err
		}

		printReport(report)
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runAnswers, "answer", nil, "form answer as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runReadiness, "readiness", false, "evaluate release-readiness quality gates")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "use the deterministic stub runtime")
}

// parseAnswers converts key=value flags into typed form answers. Booleans
// and numbers are recognized; comma-separated values become string lists.
func parseAnswers(pairs []string) (map[string]any, error) {
	answers := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid answer %q: expected key=value", pair)
		}
		answers[key] = parseAnswerValue(raw)
	}
	return answers, nil
}

func parseAnswerValue(raw string) any {
	switch raw {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if strings.Contains(raw, ",") {
		return strings.Split(raw, ",")
	}
	return raw
}

// shortID abbreviates a run id for display. Stored ids stay full length.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printReport renders a report to stdout.
func printReport(report *models.Report) {
	bold := color.New(color.Bold)
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)

	bold.Printf("Run %s — %s\n", shortID(report.RunID), report.TemplateID)
	fmt.Printf("Overall: %.1f (%s)  trend: %s  agents: %d/%d succeeded\n\n",
		report.OverallScore, report.Grade, report.Trend,
		report.AgentsSucceeded, report.AgentsExecuted)

	for _, cat := range report.Categories {
		marker := pass.Sprint("PASS")
		if !cat.Passed {
			marker = fail.Sprint("FAIL")
		}
		fmt.Printf("  %-12s %6.1f  weight %.2f  %s\n", cat.Name, cat.Score, cat.Weight, marker)
	}

	if len(report.Gates) > 0 {
		fmt.Println()
		bold.Println("Quality gates:")
		for _, gate := range report.Gates {
			marker := pass.Sprint("PASS")
			if !gate.Passed {
				marker = fail.Sprint("FAIL")
			}
			fmt.Printf("  %-12s %g %s %g  %s\n", gate.Name, gate.Actual, gate.Comparator, gate.Threshold, marker)
		}
		verdict := fail.Sprint("NOT READY")
		if report.Ready {
			verdict = pass.Sprint("READY")
		}
		fmt.Printf("Readiness: %s (confidence %s)\n", verdict, report.Confidence)
	}

	if len(report.Issues) > 0 {
		fmt.Println()
		bold.Println("Issues:")
		for _, issue := range report.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Println()
		bold.Println("Recommendations:")
		for _, rec := range report.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

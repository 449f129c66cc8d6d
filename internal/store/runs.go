package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// RunStore is the persistence interface the engine depends on. It allows
// the engine to work with any backend without importing the concrete
// SQLite implementation.
type RunStore interface {
	// SaveRun persists one completed execution.
	SaveRun(report *models.Report, response *models.FormResponse, results []models.AgentResult) error
	// LoadPrevious returns the most recent report for a template, or
	// nil with no error when none exists.
	LoadPrevious(templateID string) (*models.Report, error)
	// ListRuns returns summaries of recent runs for a template, newest
	// first.
	ListRuns(templateID string, limit int) ([]RunSummary, error)
}

// RunSummary is the listing view of one persisted run.
type RunSummary struct {
	// RunID identifies the execution.
	RunID string `json:"run_id"`
	// TemplateID is the template the run used.
	TemplateID string `json:"template_id"`
	// CreatedAt is when the run was persisted.
	CreatedAt time.Time `json:"created_at"`
	// OverallScore is the run's weighted score.
	OverallScore float64 `json:"overall_score"`
	// Grade is the run's letter grade.
	Grade models.Grade `json:"grade"`
}

// SaveRun persists one completed execution keyed by its run id.
func (db *DB) SaveRun(report *models.Report, response *models.FormResponse, results []models.AgentResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO runs (run_id, template_id, created_at, overall_score, grade, report, response, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.TemplateID, report.Timestamp.UTC(),
		report.OverallScore, string(report.Grade),
		string(reportJSON), string(responseJSON), string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}
	return nil
}

// LoadPrevious returns the most recent report for a template. A template
// with no history returns (nil, nil): absence is not an error, it only
// means the next report has no trend baseline.
func (db *DB) LoadPrevious(templateID string) (*models.Report, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var reportJSON string
	row := db.conn.QueryRow(`
		SELECT report FROM runs
		WHERE template_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, templateID)
	if err := row.Scan(&reportJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load previous report for %s: %w", templateID, err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("unmarshal previous report for %s: %w", templateID, err)
	}
	return &report, nil
}

// ListRuns returns summaries of recent runs for a template, newest first.
func (db *DB) ListRuns(templateID string, limit int) ([]RunSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT run_id, template_id, created_at, overall_score, grade FROM runs
		WHERE template_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, templateID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", templateID, err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var grade string
		if err := rows.Scan(&s.RunID, &s.TemplateID, &s.CreatedAt, &s.OverallScore, &grade); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		s.Grade = models.Grade(grade)
		out = append(out, s)
	}
	return out, rows.Err()
}

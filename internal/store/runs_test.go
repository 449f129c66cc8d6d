package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func testReport(runID, templateID string, score float64, at time.Time) *models.Report {
	return &models.Report{
		RunID:        runID,
		TemplateID:   templateID,
		Timestamp:    at,
		OverallScore: score,
		Grade:        models.GradeForScore(score),
		Trend:        models.TrendBaseline,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSaveRunAndLoadPrevious(t *testing.T) {
	db := setupTestDB(t)

	report := testReport("run-1", "health-check", 87.5, time.Now())
	report.Categories = []models.CategoryScore{
		{Name: "security", Score: 95, Weight: 0.5, Passed: true},
	}
	response := models.NewFormResponse("health-check", map[string]any{"target": "."})
	results := []models.AgentResult{{Role: "security", Success: true, Attempts: 1}}

	if err := db.SaveRun(report, response, results); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	loaded, err := db.LoadPrevious("health-check")
	if err != nil {
		t.Fatalf("LoadPrevious: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadPrevious = nil, want the saved report")
	}
	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", loaded.RunID)
	}
	if loaded.OverallScore != 87.5 {
		t.Errorf("OverallScore = %v, want 87.5", loaded.OverallScore)
	}
	if loaded.Grade != models.GradeB {
		t.Errorf("Grade = %v, want B", loaded.Grade)
	}
	if len(loaded.Categories) != 1 || loaded.Categories[0].Name != "security" {
		t.Errorf("Categories = %+v", loaded.Categories)
	}
}

func TestLoadPrevious_NoHistoryIsNotAnError(t *testing.T) {
	db := setupTestDB(t)

	report, err := db.LoadPrevious("never-run")
	if err != nil {
		t.Fatalf("LoadPrevious: %v", err)
	}
	if report != nil {
		t.Errorf("LoadPrevious = %+v, want nil", report)
	}
}

func TestLoadPrevious_ReturnsNewestForTemplate(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, r := range []*models.Report{
		testReport("run-old", "health-check", 60, base),
		testReport("run-new", "health-check", 90, base.Add(time.Hour)),
		testReport("run-other", "release-readiness", 75, base.Add(2*time.Hour)),
	} {
		if err := db.SaveRun(r, models.NewFormResponse(r.TemplateID, nil), nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	loaded, err := db.LoadPrevious("health-check")
	if err != nil {
		t.Fatalf("LoadPrevious: %v", err)
	}
	if loaded.RunID != "run-new" {
		t.Errorf("RunID = %q, want run-new", loaded.RunID)
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := testReport("run-"+string(rune('a'+i)), "health-check", float64(50+i*10), base.Add(time.Duration(i)*time.Hour))
		if err := db.SaveRun(r, models.NewFormResponse("health-check", nil), nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := db.ListRuns("health-check", 3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	if runs[0].RunID != "run-e" || runs[2].RunID != "run-c" {
		t.Errorf("runs = %+v, want newest first", runs)
	}
	if runs[0].Grade != models.GradeA {
		t.Errorf("runs[0].Grade = %v, want A", runs[0].Grade)
	}
}

func TestSaveRun_DuplicateRunIDRejected(t *testing.T) {
	db := setupTestDB(t)

	report := testReport("run-1", "health-check", 80, time.Now())
	if err := db.SaveRun(report, models.NewFormResponse("health-check", nil), nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := db.SaveRun(report, models.NewFormResponse("health-check", nil), nil); err == nil {
		t.Error("SaveRun accepted a duplicate run id")
	}
}

// Package engine wires the orchestration pipeline together: template load,
// composition, scheduling, aggregation, and persistence.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/squad/internal/aggregator"
	"github.com/ShayCichocki/squad/internal/composer"
	"github.com/ShayCichocki/squad/internal/scheduler"
	"github.com/ShayCichocki/squad/internal/store"
	"github.com/ShayCichocki/squad/internal/templates"
	"github.com/ShayCichocki/squad/pkg/models"
)

// Config contains the engine's collaborators and tuning.
type Config struct {
	// Templates loads and validates team templates. Required.
	Templates *templates.Source
	// Composer builds agent specs. Required.
	Composer *composer.Composer
	// Scheduler executes plans. Required.
	Scheduler *scheduler.Scheduler
	// Emitter is the scheduler's event stream; the engine consumes it
	// for progress snapshots. Optional.
	Emitter *scheduler.Emitter
	// Store persists runs and supplies the trend baseline. Optional:
	// without it reports simply have no trend.
	Store store.RunStore
	// Aggregation tunes scoring, weights, and readiness gating.
	Aggregation aggregator.Options
}

// Progress is a pollable snapshot of a running execution.
type Progress struct {
	// RunID identifies the execution.
	RunID string `json:"run_id"`
	// Stage is the pipeline stage name.
	Stage string `json:"stage"`
	// Percent is the share of agents settled, 0-100.
	Percent float64 `json:"percent"`
	// RunningCost is the accumulated cost in dollars.
	RunningCost float64 `json:"running_cost"`
	// Done is set once a report exists for the run.
	Done bool `json:"done"`
}

// Engine runs executions end to end. Once an execution starts, a report
// is always produced, even when every agent fails; only template-load
// failures abort beforehand.
type Engine struct {
	cfg Config

	mu       sync.RWMutex
	progress map[string]*Progress

	consumerDone chan struct{}
}

// New creates an Engine and, when an emitter is configured, starts the
// progress consumer.
func New(cfg Config) (*Engine, error) {
	if cfg.Templates == nil || cfg.Composer == nil || cfg.Scheduler == nil {
		return nil, fmt.Errorf("engine requires templates, composer, and scheduler")
	}
	e := &Engine{
		cfg:          cfg,
		progress:     make(map[string]*Progress),
		consumerDone: make(chan struct{}),
	}
	if cfg.Emitter != nil {
		go e.consumeEvents()
	}
	return e, nil
}

// Close stops the progress consumer. Call after all executions finish.
func (e *Engine) Close() {
	if e.cfg.Emitter != nil {
		e.cfg.Emitter.Close()
		<-e.consumerDone
	}
}

// consumeEvents folds scheduler events into pollable progress snapshots.
func (e *Engine) consumeEvents() {
	defer close(e.consumerDone)
	for ev := range e.cfg.Emitter.Events() {
		e.mu.Lock()
		p, ok := e.progress[ev.RunID]
		if !ok {
			p = &Progress{RunID: ev.RunID}
			e.progress[ev.RunID] = p
		}
		p.Percent = ev.Percent
		p.RunningCost = ev.RunningCost
		switch ev.Type {
		case scheduler.EventPlanStarted:
			p.Stage = "executing"
		case scheduler.EventAgentStarted, scheduler.EventAgentAttempt:
			p.Stage = "agent:" + ev.Role
		case scheduler.EventPlanFinished:
			p.Stage = "aggregating"
		}
		e.mu.Unlock()
	}
}

// Progress returns the snapshot for a run id.
func (e *Engine) Progress(runID string) (Progress, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.progress[runID]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}

func (e *Engine) setStage(runID, stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.progress[runID]
	if !ok {
		p = &Progress{RunID: runID}
		e.progress[runID] = p
	}
	p.Stage = stage
}

func (e *Engine) markDone(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.progress[runID]; ok {
		p.Done = true
		p.Stage = "done"
	}
}

// Execute runs one execution end to end and returns its report.
func (e *Engine) Execute(ctx context.Context, templateID string, resp *models.FormResponse) (*models.Report, error) {
	tmpl, err := e.cfg.Templates.Load(templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	// The full UUID is the store's primary key; truncation is the
	// presentation layer's business.
	runID := uuid.New().String()
	e.setStage(runID, "composing")

	specs, stats := e.cfg.Composer.Compose(tmpl, resp)
	if stats.RulesSkipped > 0 {
		for role, reason := range stats.SkipReasons {
			log.Printf("[engine] run %s: rule %s skipped: %s", runID, role, reason)
		}
	}

	plan := models.ExecutionPlan{
		RunID:      runID,
		TemplateID: tmpl.ID,
		Strategy:   tmpl.Strategy,
		Specs:      specs,
		CreatedAt:  time.Now(),
	}

	results, err := e.cfg.Scheduler.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("execute plan: %w", err)
	}

	e.setStage(runID, "aggregating")

	var previous *models.Report
	if e.cfg.Store != nil {
		previous, err = e.cfg.Store.LoadPrevious(tmpl.ID)
		if err != nil {
			// Trend is best-effort: a broken history never blocks
			// the report.
			log.Printf("[engine] run %s: load previous report: %v", runID, err)
			previous = nil
		}
	}

	opts := e.cfg.Aggregation
	if len(opts.Categories) == 0 {
		// No configured categories: score the roles the template
		// actually composed rather than the default analysis set.
		opts.Categories = aggregator.CategoriesFromSpecs(specs)
	}
	report := aggregator.Aggregate(results, opts, previous)
	report.RunID = runID
	report.TemplateID = tmpl.ID

	if e.cfg.Store != nil {
		if err := e.cfg.Store.SaveRun(report, resp, results); err != nil {
			log.Printf("[engine] run %s: save report: %v", runID, err)
		}
	}

	e.markDone(runID)
	return report, nil
}

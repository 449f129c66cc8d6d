// Package scheduler runs an execution plan's agents under one of the
// parallel, sequential, and refinement strategies, delegating tier and
// provider choice to the router and the work itself to the runtime.
package scheduler

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// EventType names a scheduler progress event.
type EventType string

const (
	// EventPlanStarted fires once when execution begins.
	EventPlanStarted EventType = "plan_started"
	// EventAgentStarted fires when an agent's first attempt begins.
	EventAgentStarted EventType = "agent_started"
	// EventAgentAttempt fires per tier attempt.
	EventAgentAttempt EventType = "agent_attempt"
	// EventAgentFinished fires when an agent settles.
	EventAgentFinished EventType = "agent_finished"
	// EventAgentSkipped fires when an agent is skipped without running.
	EventAgentSkipped EventType = "agent_skipped"
	// EventPlanFinished fires once when all agents have settled.
	EventPlanFinished EventType = "plan_finished"
)

// Event is one progress update. Presentation consumers poll these for
// stage name, percent complete, and running cost.
type Event struct {
	// Type is the event kind.
	Type EventType `json:"type"`
	// RunID identifies the execution plan.
	RunID string `json:"run_id"`
	// Role is the agent the event concerns, empty for plan events.
	Role string `json:"role,omitempty"`
	// Tier is the tier of the attempt, for attempt events.
	Tier models.Tier `json:"tier,omitempty"`
	// Provider is the provider of the attempt, for attempt events.
	Provider string `json:"provider,omitempty"`
	// Percent is the share of agents settled, 0-100.
	Percent float64 `json:"percent"`
	// RunningCost is the plan's accumulated cost in dollars.
	RunningCost float64 `json:"running_cost"`
	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter delivers events to subscribers over a buffered channel.
// A slow subscriber gets a short grace period before events are dropped.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event, dropping it after a short timeout if the channel
// stays full.
func (e *Emitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam.
			log.Printf("[scheduler] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event channel for subscribers.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel. Call only after Execute has returned.
func (e *Emitter) Close() {
	close(e.events)
}

package runtime

import (
	"context"
	"sync"

	"github.com/ShayCichocki/squad/pkg/models"
)

// StubRuntime is a deterministic Runtime for tests and offline runs.
// Outputs and errors are scripted per role; unscripted roles get an
// empty degraded payload.
type StubRuntime struct {
	mu sync.Mutex

	// Outputs maps role to the payload Run returns.
	Outputs map[string]*models.RoleOutput
	// Queues maps role to a sequence of payloads consumed one per call
	// before Outputs takes over. Lets tests script changing output
	// across refinement rounds.
	Queues map[string][]*models.RoleOutput
	// Errs maps role to a queue of errors returned before any output.
	// Each call consumes one entry.
	Errs map[string][]error
	// CostPerCall is the cost attributed to each successful call.
	CostPerCall float64

	// Calls records every call in order, for assertions.
	Calls []Call
}

// NewStubRuntime creates an empty stub.
func NewStubRuntime() *StubRuntime {
	return &StubRuntime{
		Outputs: make(map[string]*models.RoleOutput),
		Queues:  make(map[string][]*models.RoleOutput),
		Errs:    make(map[string][]error),
	}
}

// Run returns the scripted error or output for the call's role.
func (s *StubRuntime) Run(ctx context.Context, call Call) (*models.RoleOutput, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, call)

	if errs := s.Errs[call.Role]; len(errs) > 0 {
		err := errs[0]
		s.Errs[call.Role] = errs[1:]
		return nil, 0, err
	}

	if queue := s.Queues[call.Role]; len(queue) > 0 {
		out := queue[0]
		s.Queues[call.Role] = queue[1:]
		copied := *out
		copied.Role = call.Role
		return &copied, s.CostPerCall, nil
	}

	if out, ok := s.Outputs[call.Role]; ok {
		copied := *out
		copied.Role = call.Role
		return &copied, s.CostPerCall, nil
	}

	return &models.RoleOutput{
		Role:     call.Role,
		Metrics:  map[string]float64{},
		Degraded: true,
	}, s.CostPerCall, nil
}

// CallCount returns the number of recorded calls.
func (s *StubRuntime) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

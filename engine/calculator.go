package engine

import (
	"fmt"
	"time"

	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// RUNTIME - Shared, read-only evaluation state
// =============================================================================

// Runtime carries everything a calculator may read during one run: the
// household snapshot, the evaluation date, and the batch responses the
// orchestrator fetched. Calculators never mutate it; it is safe to share
// across concurrent evaluations.
type Runtime struct {
	Screen *screener.Screen
	Now    time.Time

	batches map[rules.BatchKey]*rules.BatchResponse
}

// NewRuntime builds a runtime for a snapshot at an evaluation date.
func NewRuntime(screen *screener.Screen, now time.Time) *Runtime {
	return &Runtime{
		Screen:  screen,
		Now:     now,
		batches: map[rules.BatchKey]*rules.BatchResponse{},
	}
}

// RulesContext adapts the runtime for input producers.
func (rt *Runtime) RulesContext() rules.Context {
	return rules.Context{Screen: rt.Screen, Now: rt.Now}
}

// Batch returns the fetched response for a group, if the orchestrator has
// executed it.
func (rt *Runtime) Batch(key rules.BatchKey) (*rules.BatchResponse, bool) {
	resp, ok := rt.batches[key]
	return resp, ok
}

// BindBatch records a fetched response. Called by the orchestrator only,
// before any calculator depending on the group is evaluated.
func (rt *Runtime) BindBatch(resp *rules.BatchResponse) {
	rt.batches[resp.Key] = resp
}

// =============================================================================
// CALCULATOR - Polymorphic over two variants
// =============================================================================

// Calculator evaluates one program against a runtime. Implementations
// must be pure with respect to the runtime and safe for concurrent use.
//
// Evaluate returns an error only for unexpected failures; expected
// ineligibility (failed conditions, missing data, degraded batches) is
// encoded in the Result's reason. The orchestrator converts returned
// errors into evaluation_error results, never into run failures.
type Calculator interface {
	Program() Program
	Evaluate(rt *Runtime) (Result, error)
}

// RemoteDelegated is the capability interface the orchestrator uses to
// partition calculators and assemble batches. Remote-delegated
// calculators never call the rules service themselves.
type RemoteDelegated interface {
	Calculator

	// Batch identifies the (unit type, period) group this calculator
	// shares with others.
	Batch(now time.Time) rules.BatchKey

	// Inputs lists the input-variable producers to merge into the batch.
	Inputs() []rules.Input

	// Outputs lists the output variables expected back.
	Outputs() []rules.Output
}

// =============================================================================
// REGISTRY - Explicit calculator mapping
// =============================================================================

// Registry maps program keys to calculators. It is constructed once from
// configuration, passed into the orchestrator, and treated as immutable
// during evaluation. There is no process-wide registry.
type Registry struct {
	calculators map[ProgramID]Calculator
	order       []ProgramID
}

// NewRegistry builds a registry, rejecting duplicate program keys.
func NewRegistry(calcs ...Calculator) (*Registry, error) {
	r := &Registry{calculators: make(map[ProgramID]Calculator, len(calcs))}
	for _, c := range calcs {
		id := c.Program().ID
		if _, exists := r.calculators[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProgram, id)
		}
		r.calculators[id] = c
		r.order = append(r.order, id)
	}
	return r, nil
}

// Lookup returns the calculator for a program key.
func (r *Registry) Lookup(id ProgramID) (Calculator, error) {
	c, ok := r.calculators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, id)
	}
	return c, nil
}

// Programs returns every registered program key in registration order.
func (r *Registry) Programs() []ProgramID {
	out := make([]ProgramID, len(r.order))
	copy(out, r.order)
	return out
}

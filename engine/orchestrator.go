/*
orchestrator.go - Eligibility evaluation pipeline

PURPOSE:
  Drives one evaluation run for a screen:

    START -> PARTITION -> BATCH_REMOTE (0..n) -> EVALUATE_EACH -> AGGREGATE -> DONE

  PARTITION splits requested programs into local-rule and remote-delegated
  calculators, grouping the latter by (unit type, period). BATCH_REMOTE
  issues exactly one rules-client call per distinct group; groups where no
  program's inputs can be produced are skipped without a network call.
  EVALUATE_EACH runs calculators concurrently; a single calculator's error
  or panic becomes an evaluation_error result, never a run failure.
  AGGREGATE applies the already-has filter and rounds values to cents.

ORDERING GUARANTEE:
  The result slice contains exactly one result per requested program, in
  request order. Evaluation order across programs is unspecified, but
  every batch completes before any calculator depending on it runs.

CANCELLATION:
  A cancelled context aborts the run with ctx.Err(); partial results are
  discarded, never partially committed.
*/
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

// RulesClient is the orchestrator's view of the remote rules client.
// Calculate always returns a usable response; failures surface as
// degraded statuses, not errors.
type RulesClient interface {
	Calculate(ctx context.Context, req *rules.BatchRequest) *rules.BatchResponse
}

const defaultParallelism = 8

// Orchestrator evaluates programs for screens. Construct once and share;
// it holds no per-run state.
type Orchestrator struct {
	registry    *Registry
	client      RulesClient
	filter      *AlreadyHasFilter
	logger      *zap.Logger
	parallelism int
	now         func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithParallelism bounds concurrent calculator evaluations.
func WithParallelism(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithClock fixes the evaluation date source. Tests use this to pin ages
// and periods.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the registry, rules client, and already-has filter.
func NewOrchestrator(registry *Registry, client RulesClient, filter *AlreadyHasFilter, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		client:      client,
		filter:      filter,
		logger:      zap.NewNop(),
		parallelism: defaultParallelism,
		now:         time.Now,
	}
	if o.filter == nil {
		o.filter = NewAlreadyHasFilter(nil)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type remoteEntry struct {
	index int
	calc  RemoteDelegated
}

// Evaluate runs every requested program against the screen and returns one
// result per program, in request order. Only an unusable screen or a
// cancelled context fails the whole run.
func (o *Orchestrator) Evaluate(ctx context.Context, screen *screener.Screen, programs []ProgramID) ([]Result, error) {
	if screen == nil {
		return nil, ErrNoScreen
	}

	rt := NewRuntime(screen, o.now())
	results := make([]Result, len(programs))
	pending := make([]Calculator, len(programs))

	// PARTITION
	groups := map[rules.BatchKey][]remoteEntry{}
	for i, id := range programs {
		calc, err := o.registry.Lookup(id)
		if err != nil {
			o.logger.Warn("engine: program not registered", zap.String("program", string(id)))
			results[i] = ineligible(id, ReasonEvaluationError)
			continue
		}
		pending[i] = calc
		if remote, ok := calc.(RemoteDelegated); ok {
			key := remote.Batch(rt.Now)
			groups[key] = append(groups[key], remoteEntry{index: i, calc: remote})
		}
	}

	// BATCH_REMOTE: one call per distinct group, serialized, all complete
	// before evaluation starts.
	keys := make([]rules.BatchKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.runBatch(ctx, rt, key, groups[key], results, pending)
	}

	// EVALUATE_EACH: calculators share the read-only runtime; a worker pool
	// bounds concurrency. Goroutines never return errors, so one program
	// cannot cancel another.
	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i := range programs {
		if pending[i] == nil {
			continue
		}
		i := i
		g.Go(func() error {
			results[i] = o.evaluateOne(rt, pending[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// AGGREGATE
	o.filter.Apply(screen, results)
	for i := range results {
		if !results[i].Eligible {
			results[i].Value = decimal.Zero
			continue
		}
		results[i].Value = results[i].Value.Round(2)
	}
	return results, nil
}

// runBatch checks each member program's inputs, merges the ready ones into
// one request, and binds the response. Programs whose inputs cannot be
// produced are resolved immediately, and a group with no ready program is
// skipped without a network call.
func (o *Orchestrator) runBatch(ctx context.Context, rt *Runtime, key rules.BatchKey, entries []remoteEntry, results []Result, pending []Calculator) {
	var inputs []rules.Input
	var outputs []rules.Output
	ready := 0

	for _, entry := range entries {
		if err := rules.CheckInputs(rt.RulesContext(), entry.calc.Inputs()); err != nil {
			id := entry.calc.Program().ID
			o.logger.Debug("engine: program missing household data",
				zap.String("program", string(id)), zap.Error(err))
			results[entry.index] = ineligible(id, reasonForError(err))
			pending[entry.index] = nil
			continue
		}
		inputs = append(inputs, entry.calc.Inputs()...)
		outputs = append(outputs, entry.calc.Outputs()...)
		ready++
	}

	if ready == 0 {
		return
	}

	req := &rules.BatchRequest{
		Screen:  rt.Screen,
		Key:     key,
		Now:     rt.Now,
		Inputs:  rules.DedupeInputs(inputs),
		Outputs: rules.DedupeOutputs(outputs),
	}
	resp := o.client.Calculate(ctx, req)
	rt.BindBatch(resp)

	o.logger.Debug("engine: batch bound",
		zap.String("batch", key.String()),
		zap.Int("programs", ready),
		zap.String("status", string(resp.Status)))
}

// evaluateOne isolates a single calculator: returned errors and panics
// both become results, never run failures.
func (o *Orchestrator) evaluateOne(rt *Runtime, calc Calculator) (result Result) {
	id := calc.Program().ID
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("engine: calculator panicked",
				zap.String("program", string(id)), zap.Any("panic", r), zap.Stack("stack"))
			result = ineligible(id, ReasonEvaluationError)
		}
	}()

	result, err := calc.Evaluate(rt)
	if err != nil {
		o.logger.Warn("engine: calculator failed",
			zap.String("program", string(id)), zap.Error(err))
		return ineligible(id, reasonForError(err))
	}
	return result
}

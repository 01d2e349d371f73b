/*
Package validate checks engine output against known-good fixtures.

PURPOSE:
  Program rules drift: poverty limits change yearly, allotment tables get
  republished, and the remote rules service evolves underneath us. The
  harness runs canned household fixtures through a real orchestrator and
  diffs the results against expected outcomes, so a rules regression shows
  up as a named mismatch instead of a silent wrong answer.

USAGE:
  harness := validate.NewHarness(orch)
  mismatches, err := harness.Run(ctx, validate.DefaultFixtures())
  for _, m := range mismatches {
      log.Printf("%s", m)
  }

TOLERANCE:
  Values match when they agree to the cent. Eligibility and reason codes
  must match exactly.

SEE ALSO:
  - fixtures.go: the canned households and their expected outcomes
*/
package validate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/screener"
)

// Expectation is the known-good outcome for one program on one fixture.
type Expectation struct {
	Program  engine.ProgramID
	Eligible bool
	Value    decimal.Decimal
	Reason   engine.Reason // optional; checked only when set
}

// Fixture is a canned household with expected outcomes.
type Fixture struct {
	Name     string
	Screen   *screener.Screen
	Expected []Expectation
}

// Programs returns the program IDs the fixture expects, in declaration order.
func (f *Fixture) Programs() []engine.ProgramID {
	ids := make([]engine.ProgramID, len(f.Expected))
	for i, e := range f.Expected {
		ids[i] = e.Program
	}
	return ids
}

// Mismatch is one disagreement between expected and actual output.
type Mismatch struct {
	Fixture string
	Program engine.ProgramID
	Field   string
	Want    string
	Got     string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s/%s: %s want %s, got %s", m.Fixture, m.Program, m.Field, m.Want, m.Got)
}

// centTolerance is the widest value disagreement that still counts as a
// match. Published tables round to whole cents.
var centTolerance = decimal.New(1, -2)

// Harness runs fixtures through an orchestrator and reports mismatches.
type Harness struct {
	orch   *engine.Orchestrator
	logger *zap.Logger
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithHarnessLogger attaches a logger; the default is a nop logger.
func WithHarnessLogger(l *zap.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// NewHarness wraps an orchestrator for fixture validation.
func NewHarness(orch *engine.Orchestrator, opts ...HarnessOption) *Harness {
	h := &Harness{orch: orch, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run evaluates every fixture and returns all mismatches. A non-nil error
// means a run could not complete at all (cancelled context, nil screen);
// rule disagreements are mismatches, not errors.
func (h *Harness) Run(ctx context.Context, fixtures []Fixture) ([]Mismatch, error) {
	var mismatches []Mismatch
	for i := range fixtures {
		found, err := h.runOne(ctx, &fixtures[i])
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", fixtures[i].Name, err)
		}
		mismatches = append(mismatches, found...)
	}
	h.logger.Info("validate: run complete",
		zap.Int("fixtures", len(fixtures)),
		zap.Int("mismatches", len(mismatches)))
	return mismatches, nil
}

func (h *Harness) runOne(ctx context.Context, f *Fixture) ([]Mismatch, error) {
	results, err := h.orch.Evaluate(ctx, f.Screen, f.Programs())
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for i, want := range f.Expected {
		got := results[i]
		if got.Program != want.Program {
			// Result order is guaranteed; a mismatch here is an engine bug.
			mismatches = append(mismatches, Mismatch{
				Fixture: f.Name, Program: want.Program,
				Field: "program", Want: string(want.Program), Got: string(got.Program),
			})
			continue
		}
		if got.Eligible != want.Eligible {
			mismatches = append(mismatches, Mismatch{
				Fixture: f.Name, Program: want.Program,
				Field: "eligible",
				Want:  fmt.Sprintf("%t", want.Eligible),
				Got:   fmt.Sprintf("%t (reason %s)", got.Eligible, got.Reason),
			})
			continue
		}
		if want.Reason != "" && got.Reason != want.Reason {
			mismatches = append(mismatches, Mismatch{
				Fixture: f.Name, Program: want.Program,
				Field: "reason", Want: string(want.Reason), Got: string(got.Reason),
			})
		}
		if want.Eligible && got.Value.Sub(want.Value).Abs().GreaterThan(centTolerance) {
			mismatches = append(mismatches, Mismatch{
				Fixture: f.Name, Program: want.Program,
				Field: "value", Want: want.Value.StringFixed(2), Got: got.Value.StringFixed(2),
			})
		}
	}
	return mismatches, nil
}

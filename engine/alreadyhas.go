/*
alreadyhas.go - Already-has benefit filter

PURPOSE:
  Many state-specific program keys describe the same real-world benefit:
  a household that reports receiving Medicaid should not be told it is
  eligible for co_medicaid or il_medicaid. The canonical mapping collapses
  program keys onto one benefit flag, and this filter overrides any
  computed result for a flagged benefit after evaluation.

  The filter runs strictly after calculator evaluation: the underlying
  computation still happens (useful for diagnostics) but a positive
  (eligible, value) pair never surfaces for an already-claimed benefit.
*/
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/screener"
)

// BenefitMapping maps a program key to the canonical benefit flag name on
// the screen. Supplied by configuration; read-only to the engine.
type BenefitMapping map[ProgramID]string

// AlreadyHasFilter suppresses eligibility for benefits the household
// already reports holding.
type AlreadyHasFilter struct {
	mapping BenefitMapping
}

// NewAlreadyHasFilter wraps a canonical mapping. A nil mapping yields a
// filter that never overrides.
func NewAlreadyHasFilter(mapping BenefitMapping) *AlreadyHasFilter {
	return &AlreadyHasFilter{mapping: mapping}
}

// Canonical returns the benefit flag a program key maps to.
func (f *AlreadyHasFilter) Canonical(id ProgramID) (string, bool) {
	name, ok := f.mapping[id]
	return name, ok
}

// Apply overrides each result whose mapped benefit flag is set on the
// screen: eligible=false, value=0, reason=already_has_benefit, regardless
// of what the calculator determined.
func (f *AlreadyHasFilter) Apply(screen *screener.Screen, results []Result) {
	for i := range results {
		canonical, ok := f.mapping[results[i].Program]
		if !ok || !screen.HasBenefit(canonical) {
			continue
		}
		results[i].Eligible = false
		results[i].Value = decimal.Zero
		results[i].Reason = ReasonAlreadyHas
		results[i].EligibleMembers = nil
	}
}

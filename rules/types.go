/*
Package rules is the client for the remote rules-calculation service.

PURPOSE:
  Remote-delegated programs defer their eligibility and value math to an
  external service that computes tax/benefit outputs from declared input
  variables. Many programs need overlapping inputs for the same household,
  so this package batches: one outbound request per (unit type, period)
  group per evaluation run, merging every calculator's variables.

KEY CONCEPTS:
  - UnitType: the entity granularity a variable is computed over
    (household, member, shared-resource "SPM" unit, tax unit)
  - Input: a producer that reads one variable's value from a screen
  - BatchRequest/BatchResponse: transient per-run request and parsed result
  - Fallback: a failed call yields a response whose every lookup reports
    unavailable, so affected programs degrade instead of the run aborting

CACHING:
  An in-process TTL cache keyed by a request fingerprint (screen, unit,
  period, sorted variables, entity count) short-circuits identical requests
  within one run. Entries are never shared across screens: the screen ID is
  part of the fingerprint. Concurrent identical requests coalesce through
  singleflight, so at most one outbound call is in flight per fingerprint.

SEE ALSO:
  - engine: the orchestrator that groups calculators and issues batches
  - rules/inputs.go: the input-variable catalog
*/
package rules

import (
	"fmt"
	"time"

	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// UNITS AND PERIODS
// =============================================================================

// UnitType names an entity group on the remote service's wire format.
type UnitType string

const (
	UnitHousehold UnitType = "households"
	UnitMember    UnitType = "people"
	UnitSPM       UnitType = "spm_units"
	UnitTax       UnitType = "tax_units"
)

// Period is the calculation period understood by the remote service,
// a calendar year as a string.
type Period string

// PeriodForYear returns the period for a calendar year.
func PeriodForYear(year int) Period { return Period(fmt.Sprintf("%d", year)) }

// PeriodAt returns the period containing the evaluation date.
func PeriodAt(at time.Time) Period { return PeriodForYear(at.Year()) }

// BatchKey identifies one remote batch group. All calculators sharing a
// key are answered by a single outbound call per run.
type BatchKey struct {
	Unit   UnitType
	Period Period
}

func (k BatchKey) String() string {
	return string(k.Unit) + "/" + string(k.Period)
}

// =============================================================================
// INPUT PRODUCERS
// =============================================================================

// Scope tells the request builder whether a variable is set once per
// household or once per member.
type Scope string

const (
	ScopeHousehold Scope = "household"
	ScopeMember    Scope = "member"
)

// Context carries what producers need to read a screen. Now is the
// evaluation date, fixed for the whole run.
type Context struct {
	Screen *screener.Screen
	Now    time.Time
}

// Input reads one variable's value from a household snapshot and knows
// how to name it on a batched request. Inputs must be pure: no side
// effects, no mutation of the screen.
type Input interface {
	Variable() string
	Scope() Scope
}

// HouseholdInput produces one value for the whole household.
type HouseholdInput interface {
	Input
	Value(ctx Context) (any, error)
}

// MemberInput produces one value per member.
type MemberInput interface {
	Input
	Value(ctx Context, m *screener.HouseholdMember) (any, error)
}

// Output identifies a variable a calculator expects back, scoped to the
// unit it is computed over.
type Output struct {
	Variable string
	Unit     UnitType
}

// =============================================================================
// BATCH REQUEST
// =============================================================================

// BatchRequest groups the de-duplicated union of variables needed by every
// calculator sharing a (unit type, period). It is built, sent, and
// discarded within one orchestrator run.
type BatchRequest struct {
	Screen  *screener.Screen
	Key     BatchKey
	Now     time.Time
	Inputs  []Input
	Outputs []Output
}

// CheckInputs verifies every input can be produced from the screen.
// It returns the first invalid-household-data failure, letting the
// orchestrator mark just the affected programs instead of calling out.
func CheckInputs(ctx Context, inputs []Input) error {
	for _, in := range inputs {
		switch v := in.(type) {
		case HouseholdInput:
			if _, err := v.Value(ctx); err != nil {
				return err
			}
		case MemberInput:
			for _, m := range ctx.Screen.Members {
				if _, err := v.Value(ctx, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

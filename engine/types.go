/*
Package engine determines benefit eligibility and value per program.

PURPOSE:
  This package contains the calculator hierarchy and the orchestrator that
  evaluates a household snapshot against a set of benefit programs. Two
  calculation strategies coexist:

  - Local-rule calculators encode hand-written predicates and value
    formulas over the snapshot.
  - Remote-delegated calculators defer the math to the remote rules
    service, sharing batched calls with every program that needs the same
    (unit type, period).

KEY CONCEPTS IN THIS FILE (types.go):
  - Program: one benefit scheme (key, value format, eligibility mode)
  - Result: the (eligible, value, reason) triple per program per run
  - Reason: the closed set of ineligibility reason codes

DESIGN PRINCIPLES:
  1. Determinism: fixed snapshot + fixed remote responses = fixed results
  2. Isolation: one program's failure never aborts another's evaluation
  3. Precision: decimal.Decimal for every dollar figure
  4. Composition: calculators are configured, not subclassed

SEE ALSO:
  - local.go: the local-rule variant
  - remote.go: the remote-delegated variant
  - orchestrator.go: the evaluation pipeline
*/
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// PROGRAM - One benefit scheme
// =============================================================================

// ProgramID is the globally unique abbreviated program name. It keys the
// calculator registry and the canonical benefit mapping.
type ProgramID string

// ValueFormat is how a program's dollar value is expressed.
type ValueFormat string

const (
	ValueMonthly ValueFormat = "monthly"
	ValueYearly  ValueFormat = "yearly"
	ValueLumpSum ValueFormat = "lump_sum"
)

// Mode declares whether household-level conditions alone govern
// eligibility, or at least one eligible member is also required. This is
// an explicit program property, never inferred from which conditions a
// calculator happens to define.
type Mode string

const (
	ModeHousehold Mode = "household"
	ModeMember    Mode = "member"
)

// Program describes a benefit scheme. Programs are created by
// configuration import and are read-only to the engine.
type Program struct {
	ID          ProgramID
	Name        string
	Mode        Mode
	ValueFormat ValueFormat

	// LegalStatuses restricts the program to households with at least one
	// member holding one of these statuses. Empty means unrestricted.
	LegalStatuses []string

	// Year is the poverty-limit table used for income thresholds.
	Year *fpl.Year
}

// legalStatusCondition is the reported condition name when a program's
// status restriction rules the household out.
const legalStatusCondition = "legal_status"

// legalStatusSatisfied holds when the program carries no status restriction
// or at least one member holds a required status. Enforced for both
// calculator variants before any program-specific evaluation.
func (p Program) legalStatusSatisfied(s *screener.Screen) bool {
	if len(p.LegalStatuses) == 0 {
		return true
	}
	for _, m := range s.Members {
		for _, want := range p.LegalStatuses {
			if m.LegalStatus == want {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// RESULT - Output entity
// =============================================================================

// Reason is an ineligibility reason code. Empty for eligible results.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonConditionFailed   Reason = "condition_failed"
	ReasonDataError         Reason = "data_error"
	ReasonRemoteUnavailable Reason = "remote_service_unavailable"
	ReasonRemoteInvalid     Reason = "remote_response_invalid"
	ReasonEvaluationError   Reason = "evaluation_error"
	ReasonAlreadyHas        Reason = "already_has_benefit"
)

// Result is one program's outcome for one evaluation run. Value is zero
// whenever Eligible is false.
type Result struct {
	Program  ProgramID
	Eligible bool
	Value    decimal.Decimal
	Reason   Reason

	// FailedConditions names the conditions that did not hold, for
	// diagnostics and the validation harness. Order follows declaration.
	FailedConditions []string

	// EligibleMembers lists the members who passed member-level
	// conditions, for member-mode programs.
	EligibleMembers []screener.MemberID
}

func ineligible(id ProgramID, reason Reason) Result {
	return Result{Program: id, Eligible: false, Value: decimal.Zero, Reason: reason}
}

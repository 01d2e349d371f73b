/*
errors.go - Centralized error types for the eligibility engine

PURPOSE:
  The engine's propagation policy is strict: no error originating inside a
  single program's evaluation may abort evaluation of any other program.
  Errors here exist to be classified into ineligibility reasons, not to
  escape the orchestrator. The only hard failure is an unusable screen.

ERROR CATEGORIES:
  1. Snapshot errors  - screener.ErrInvalidHouseholdData (missing fields)
  2. Remote errors    - missing batch, malformed response (rules package)
  3. Registry errors  - unknown or duplicate program keys

SEE ALSO:
  - screener/screen.go: ErrInvalidHouseholdData and InvalidDataError
  - rules/response.go: ErrMalformedResponse
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoScreen is returned when the caller passed no household snapshot.
	// This is the one failure that is fatal to a whole run.
	ErrNoScreen = errors.New("no household snapshot")

	// ErrMissingRemoteOutput is returned when a remote-delegated calculator
	// is evaluated before the orchestrator executed its batch. It signals
	// an orchestration bug and is recovered as remote_service_unavailable.
	ErrMissingRemoteOutput = errors.New("remote batch not yet executed")

	// ErrDuplicateProgram is returned when two calculators register the
	// same program key.
	ErrDuplicateProgram = errors.New("duplicate program key")

	// ErrUnknownProgram is returned when a requested program has no
	// registered calculator.
	ErrUnknownProgram = errors.New("unknown program key")
)

// MissingRemoteOutputError names the program and batch behind an
// ErrMissingRemoteOutput failure.
type MissingRemoteOutputError struct {
	Program ProgramID
	Batch   rules.BatchKey
}

func (e *MissingRemoteOutputError) Error() string {
	return fmt.Sprintf("program %s: batch %s not yet executed", e.Program, e.Batch)
}

func (e *MissingRemoteOutputError) Unwrap() error { return ErrMissingRemoteOutput }

// =============================================================================
// CLASSIFICATION
// =============================================================================

// reasonForError maps a recovered evaluation error to its reason code.
func reasonForError(err error) Reason {
	switch {
	case errors.Is(err, screener.ErrInvalidHouseholdData):
		return ReasonDataError
	case errors.Is(err, ErrMissingRemoteOutput):
		return ReasonRemoteUnavailable
	case errors.Is(err, rules.ErrMalformedResponse):
		return ReasonRemoteInvalid
	default:
		return ReasonEvaluationError
	}
}

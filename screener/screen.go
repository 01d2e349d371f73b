/*
Package screener provides the household snapshot the engine evaluates.

PURPOSE:
  A Screen is a household's full demographic and financial submission:
  members, income and expense streams, geography, and flags for benefits
  the household already receives. Calculators read screens through pure
  accessors; nothing in this package mutates a screen after construction.

KEY CONCEPTS:
  - Screen: the household aggregate (one per evaluation)
  - HouseholdMember: one person, exclusively owned by its screen
  - IncomeStream: declared income with a payment frequency
  - Gross income aggregation: by period (monthly/yearly) and type subset

IMMUTABILITY:
  Once a screen has validations recorded against it, it is frozen upstream
  to preserve audit integrity. The engine does not depend on the freeze
  state: it never writes to a screen either way.

SEE ALSO:
  - engine: calculators and the eligibility orchestrator
  - rules: remote input variables read from screens
*/
package screener

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScreenID string

// NewScreenID mints a fresh screen identifier.
func NewScreenID() ScreenID { return ScreenID(uuid.NewString()) }

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidHouseholdData is returned when a declared dependency cannot be
// read from the screen (missing or null field). The orchestrator recovers
// it per program; it never aborts a run.
var ErrInvalidHouseholdData = errors.New("invalid household data")

// InvalidDataError names the screen and field behind an
// ErrInvalidHouseholdData failure.
type InvalidDataError struct {
	Screen ScreenID
	Field  string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("screen %s: missing or invalid field %q", e.Screen, e.Field)
}

func (e *InvalidDataError) Unwrap() error { return ErrInvalidHouseholdData }

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseType string

const (
	ExpenseRent           ExpenseType = "rent"
	ExpenseMortgage       ExpenseType = "mortgage"
	ExpenseSubsidizedRent ExpenseType = "subsidized_rent"
	ExpenseHeating        ExpenseType = "heating"
	ExpenseCooling        ExpenseType = "cooling"
	ExpenseChildCare      ExpenseType = "child_care"
	ExpenseChildSupport   ExpenseType = "child_support"
	ExpenseMedical        ExpenseType = "medical"
	ExpensePropertyTax    ExpenseType = "property_tax"
)

// Expense is one declared household expense, always monthly.
type Expense struct {
	Type   ExpenseType
	Amount decimal.Decimal
}

// =============================================================================
// SCREEN - The household snapshot
// =============================================================================

// Screen is the read-only aggregate handed to calculators. Benefits maps
// canonical benefit flag names (e.g. "snap", "medicaid") to whether the
// household already receives that benefit.
type Screen struct {
	ID ScreenID

	State   string
	County  string
	ZipCode string

	Members  []*HouseholdMember
	Expenses []Expense

	HouseholdAssets decimal.Decimal

	Benefits map[string]bool

	Frozen bool
}

// HouseholdSize is the number of members on the screen.
func (s *Screen) HouseholdSize() int { return len(s.Members) }

// Member returns the member with the given id, or nil.
func (s *Screen) Member(id MemberID) *HouseholdMember {
	for _, m := range s.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Head returns the head of household, or nil if none is marked.
func (s *Screen) Head() *HouseholdMember {
	for _, m := range s.Members {
		if m.IsHead() {
			return m
		}
	}
	return nil
}

// GrossIncome aggregates income across all members.
func (s *Screen) GrossIncome(period IncomePeriod, types ...IncomeType) decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.Members {
		total = total.Add(m.GrossIncome(period, types...))
	}
	return total
}

// NumAdults counts members aged 18 or older at the evaluation date.
func (s *Screen) NumAdults(at time.Time) int {
	n := 0
	for _, m := range s.Members {
		if m.AgeAt(at) >= 18 {
			n++
		}
	}
	return n
}

// NumChildren counts members whose age at the evaluation date falls in
// [minAge, maxAge].
func (s *Screen) NumChildren(at time.Time, minAge, maxAge int) int {
	n := 0
	for _, m := range s.Members {
		age := m.AgeAt(at)
		if age >= minAge && age <= maxAge {
			n++
		}
	}
	return n
}

// HasBenefit reports whether the household already receives the benefit
// behind the canonical flag name.
func (s *Screen) HasBenefit(canonical string) bool {
	return s.Benefits[canonical]
}

// HasExpense reports whether the household declared any of the expense types.
func (s *Screen) HasExpense(types ...ExpenseType) bool {
	for _, e := range s.Expenses {
		for _, t := range types {
			if e.Type == t {
				return true
			}
		}
	}
	return false
}

// CalcExpenses totals declared expenses of the given types over the period.
func (s *Screen) CalcExpenses(period IncomePeriod, types ...ExpenseType) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Expenses {
		for _, t := range types {
			if e.Type == t {
				total = total.Add(e.Amount)
				break
			}
		}
	}
	if period == PeriodYearly {
		return total.Mul(monthsPerYear)
	}
	return total
}

// RequireCounty returns the county or an invalid-data failure, for
// calculators that declare a county dependency.
func (s *Screen) RequireCounty() (string, error) {
	if s.County == "" {
		return "", &InvalidDataError{Screen: s.ID, Field: "county"}
	}
	return s.County, nil
}

// RequireState returns the state code or an invalid-data failure.
func (s *Screen) RequireState() (string, error) {
	if s.State == "" {
		return "", &InvalidDataError{Screen: s.ID, Field: "state"}
	}
	return s.State, nil
}

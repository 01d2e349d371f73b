/*
inputs.go - Input-variable catalog

PURPOSE:
  Concrete producers for the remote-service input variables the program
  catalog uses. Each producer reads one value from the household snapshot
  and names it for inclusion in a batched request. Programs compose these
  into their dependency declarations; nothing here calls the service.

  Producers that cannot read their value (missing county, missing state)
  fail with the screener's invalid-household-data error, which the
  orchestrator converts into a program-specific data_error result.
*/
package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/screener"
)

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// =============================================================================
// GENERIC CONSTRUCTORS
// =============================================================================

type householdInput struct {
	variable string
	fn       func(ctx Context) (any, error)
}

func (h householdInput) Variable() string               { return h.variable }
func (h householdInput) Scope() Scope                   { return ScopeHousehold }
func (h householdInput) Value(ctx Context) (any, error) { return h.fn(ctx) }

type memberInput struct {
	variable string
	fn       func(ctx Context, m *screener.HouseholdMember) (any, error)
}

func (mi memberInput) Variable() string { return mi.variable }
func (mi memberInput) Scope() Scope     { return ScopeMember }
func (mi memberInput) Value(ctx Context, m *screener.HouseholdMember) (any, error) {
	return mi.fn(ctx, m)
}

// HouseholdVar builds a household-scoped input from a read function.
func HouseholdVar(variable string, fn func(ctx Context) (any, error)) HouseholdInput {
	return householdInput{variable: variable, fn: fn}
}

// MemberVar builds a member-scoped input from a read function.
func MemberVar(variable string, fn func(ctx Context, m *screener.HouseholdMember) (any, error)) MemberInput {
	return memberInput{variable: variable, fn: fn}
}

// =============================================================================
// HOUSEHOLD-SCOPED VARIABLES
// =============================================================================

// StateCode submits the screen's two-letter state code.
func StateCode() HouseholdInput {
	return HouseholdVar("state_code", func(ctx Context) (any, error) {
		return ctx.Screen.RequireState()
	})
}

// County submits the county in the service's COUNTY_NAME_ST convention.
func County() HouseholdInput {
	return HouseholdVar("county_str", func(ctx Context) (any, error) {
		county, err := ctx.Screen.RequireCounty()
		if err != nil {
			return nil, err
		}
		state, err := ctx.Screen.RequireState()
		if err != nil {
			return nil, err
		}
		normalized := strings.ToUpper(strings.ReplaceAll(county, " ", "_"))
		return normalized + "_" + strings.ToUpper(state), nil
	})
}

// ZipCode submits the screen's zip code.
func ZipCode() HouseholdInput {
	return HouseholdVar("zip_code", func(ctx Context) (any, error) {
		if ctx.Screen.ZipCode == "" {
			return nil, &screener.InvalidDataError{Screen: ctx.Screen.ID, Field: "zip_code"}
		}
		return ctx.Screen.ZipCode, nil
	})
}

// =============================================================================
// MEMBER-SCOPED VARIABLES
// =============================================================================

// Age submits each member's age at the evaluation date.
func Age() MemberInput {
	return MemberVar("age", func(ctx Context, m *screener.HouseholdMember) (any, error) {
		return m.AgeAt(ctx.Now), nil
	})
}

// IsPregnant submits the pregnancy flag.
func IsPregnant() MemberInput {
	return MemberVar("is_pregnant", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.Pregnant, nil
	})
}

// IsDisabled submits the folded disability flag. Blindness counts.
func IsDisabled() MemberInput {
	return MemberVar("is_disabled", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.HasDisability(), nil
	})
}

// IsBlind submits the visual-impairment flag on its own.
func IsBlind() MemberInput {
	return MemberVar("is_blind", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.VisuallyImpaired, nil
	})
}

// IsFullTimeStudent submits the student flag.
func IsFullTimeStudent() MemberInput {
	return MemberVar("is_full_time_college_student", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.Student, nil
	})
}

// TaxUnitHead, TaxUnitSpouse, and TaxUnitDependent describe the single tax
// unit submitted per household.
func TaxUnitHead() MemberInput {
	return MemberVar("is_tax_unit_head", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.IsHead(), nil
	})
}

func TaxUnitSpouse() MemberInput {
	return MemberVar("is_tax_unit_spouse", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.IsSpouse(), nil
	})
}

func TaxUnitDependent() MemberInput {
	return MemberVar("is_tax_unit_dependent", func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.IsDependent(), nil
	})
}

// incomeVar submits a yearly gross income subset, truncated to whole
// dollars the way the service expects.
func incomeVar(variable string, types ...screener.IncomeType) MemberInput {
	return MemberVar(variable, func(_ Context, m *screener.HouseholdMember) (any, error) {
		return m.GrossIncome(screener.PeriodYearly, types...).IntPart(), nil
	})
}

func EmploymentIncome() MemberInput {
	return incomeVar("employment_income", screener.IncomeWages)
}

func SelfEmploymentIncome() MemberInput {
	return incomeVar("self_employment_income", screener.IncomeSelfEmployment)
}

func SocialSecurityIncome() MemberInput {
	return incomeVar("social_security",
		screener.IncomeSSDisability, screener.IncomeSSSurvivor, screener.IncomeSSRetirement)
}

func UnemploymentIncome() MemberInput {
	return incomeVar("unemployment_compensation", screener.IncomeUnemployment)
}

func InvestmentIncome() MemberInput {
	return incomeVar("capital_gains", screener.IncomeInvestment)
}

func PensionIncome() MemberInput {
	return incomeVar("taxable_pension_income", screener.IncomePension, screener.IncomeVeteran)
}

// ReportedSSI submits reported SSI, or nil so the service computes
// eligibility itself when the member reports none.
func ReportedSSI() MemberInput {
	return MemberVar("ssi", func(_ Context, m *screener.HouseholdMember) (any, error) {
		ssi := m.GrossIncome(screener.PeriodYearly, screener.IncomeSSI)
		if ssi.IsZero() {
			return nil, nil
		}
		return ssi.IntPart(), nil
	})
}

// SSICountableResources splits household assets across the adults.
func SSICountableResources() MemberInput {
	return MemberVar("ssi_countable_resources", func(ctx Context, m *screener.HouseholdMember) (any, error) {
		if m.AgeAt(ctx.Now) < 19 {
			return int64(0), nil
		}
		adults := ctx.Screen.NumAdults(ctx.Now)
		if adults == 0 {
			return int64(0), nil
		}
		return ctx.Screen.HouseholdAssets.Div(decimalFromInt(adults)).IntPart(), nil
	})
}

// ChildSupportExpense splits the household's child support evenly; the
// service expects a per-member yearly figure.
func ChildSupportExpense() MemberInput {
	return MemberVar("child_support_expense", func(ctx Context, m *screener.HouseholdMember) (any, error) {
		size := ctx.Screen.HouseholdSize()
		if size == 0 {
			return int64(0), nil
		}
		yearly := ctx.Screen.CalcExpenses(screener.PeriodYearly, screener.ExpenseChildSupport)
		return yearly.Div(decimalFromInt(size)).IntPart(), nil
	})
}

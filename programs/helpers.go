package programs

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// SHARED CONDITIONS
// =============================================================================

// incomeBelowFPL holds when gross household income (all types, monthly) is
// at or under the given percentage of the poverty limit for the household
// size.
func incomeBelowFPL(year *fpl.Year, percent float64) engine.Condition {
	return engine.Condition{
		Name: "income_below_fpl",
		Test: func(rt *engine.Runtime) (bool, error) {
			limit := year.MonthlyPercent(rt.Screen.HouseholdSize(), percent)
			income := rt.Screen.GrossIncome(screener.PeriodMonthly, screener.IncomeAll)
			return income.LessThanOrEqual(limit), nil
		},
	}
}

// hasPregnantMember holds when any member reports a pregnancy.
func hasPregnantMember() engine.Condition {
	return engine.Condition{
		Name: "pregnant_member",
		Test: func(rt *engine.Runtime) (bool, error) {
			for _, m := range rt.Screen.Members {
				if m.Pregnant {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

// seniorOrDisabled holds for members aged minAge or older, or with any
// disability flag.
func seniorOrDisabled(minAge int) engine.MemberCondition {
	return engine.MemberCondition{
		Name: "senior_or_disabled",
		Test: func(rt *engine.Runtime, m *screener.HouseholdMember) (bool, error) {
			return m.AgeAt(rt.Now) >= minAge || m.HasDisability(), nil
		},
	}
}

// fixedMonthly returns a member value function paying a flat monthly amount.
func fixedMonthly(amount string) func(*engine.Runtime, *screener.HouseholdMember) (decimal.Decimal, error) {
	v := decimal.RequireFromString(amount)
	return func(*engine.Runtime, *screener.HouseholdMember) (decimal.Decimal, error) {
		return v, nil
	}
}

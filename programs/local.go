/*
local.go - Pre-built local-rule program configurations

PURPOSE:
  Ready-to-use configurations for programs whose eligibility rules and
  value formulas are authored here rather than delegated to the remote
  rules service. Each constructor returns a configured calculator; the
  catalog assembles them into a registry.

AVAILABLE PROGRAMS:
  Snap:                   food assistance, 130% FPL gross income test,
                          maximum allotment by household size
  MedicareSavings:        Part B premium coverage for seniors/disabled
                          members under 135% FPL
  NurseFamilyPartnership: nurse home visits for pregnant members under
                          200% FPL
  TransitReducedFare:     reduced transit fares for seniors and disabled
                          members

CUSTOMIZATION:
  These encode one state's current figures. Other states typically adjust
  the FPL percentages and dollar tables; use factory.ParseCatalog to load
  variants from configuration instead of forking the constructors.
*/
package programs

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
)

// =============================================================================
// SNAP - Food assistance
// =============================================================================

// snapAllotments is the maximum monthly allotment by household size; each
// person beyond the table adds snapAllotmentExtra.
var snapAllotments = map[int]string{
	1: "281", 2: "516", 3: "740", 4: "939",
	5: "1116", 6: "1339", 7: "1480", 8: "1691",
}

const snapAllotmentExtra = "211"

// SnapMaxAllotment returns the maximum monthly benefit for a household size.
func SnapMaxAllotment(size int) decimal.Decimal {
	if size < 1 {
		size = 1
	}
	if s, ok := snapAllotments[size]; ok {
		return decimal.RequireFromString(s)
	}
	extra := decimal.RequireFromString(snapAllotmentExtra).Mul(decimal.NewFromInt(int64(size - 8)))
	return decimal.RequireFromString(snapAllotments[8]).Add(extra)
}

// Snap returns the local-rule SNAP calculator: gross monthly income at or
// under 130% FPL, valued at the maximum allotment for the household size.
func Snap(id engine.ProgramID, year *fpl.Year) *engine.LocalCalculator {
	return engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Supplemental Nutrition Assistance Program",
			Mode:        engine.ModeHousehold,
			ValueFormat: engine.ValueMonthly,
			Year:        year,
		},
		Dependencies: []string{"income_amount", "income_frequency", "household_size"},
		HouseholdConditions: []engine.Condition{
			incomeBelowFPL(year, 1.30),
		},
		HouseholdValue: func(rt *engine.Runtime) (decimal.Decimal, error) {
			return SnapMaxAllotment(rt.Screen.HouseholdSize()), nil
		},
	})
}

// =============================================================================
// MEDICARE SAVINGS PROGRAM
// =============================================================================

// MedicareSavings covers the Part B premium for members aged 65+ or
// disabled, in households under 135% FPL.
func MedicareSavings(id engine.ProgramID, year *fpl.Year) *engine.LocalCalculator {
	return engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Medicare Savings Program",
			Mode:        engine.ModeMember,
			ValueFormat: engine.ValueMonthly,
			Year:        year,
		},
		Dependencies: []string{"age", "income_amount", "income_frequency"},
		HouseholdConditions: []engine.Condition{
			incomeBelowFPL(year, 1.35),
		},
		MemberConditions: []engine.MemberCondition{
			seniorOrDisabled(65),
		},
		// Part B standard premium.
		MemberValue: fixedMonthly("164.90"),
	})
}

// =============================================================================
// NURSE FAMILY PARTNERSHIP
// =============================================================================

// NurseFamilyPartnership offers nurse home visits through pregnancy and
// the child's first two years. Valued as the lump-sum cost of the service.
func NurseFamilyPartnership(id engine.ProgramID, year *fpl.Year) *engine.LocalCalculator {
	value := decimal.NewFromInt(10200)
	return engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Nurse Family Partnership",
			Mode:        engine.ModeHousehold,
			ValueFormat: engine.ValueLumpSum,
			Year:        year,
		},
		Dependencies: []string{"pregnant", "income_amount", "income_frequency"},
		HouseholdConditions: []engine.Condition{
			hasPregnantMember(),
			incomeBelowFPL(year, 2.00),
		},
		HouseholdValue: func(*engine.Runtime) (decimal.Decimal, error) {
			return value, nil
		},
	})
}

// =============================================================================
// TRANSIT REDUCED FARE
// =============================================================================

// TransitReducedFare halves transit fares for seniors and disabled riders.
func TransitReducedFare(id engine.ProgramID, year *fpl.Year) *engine.LocalCalculator {
	return engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Transit Reduced Fare",
			Mode:        engine.ModeMember,
			ValueFormat: engine.ValueMonthly,
			Year:        year,
		},
		Dependencies: []string{"age"},
		MemberConditions: []engine.MemberCondition{
			seniorOrDisabled(65),
		},
		MemberValue: fixedMonthly("38"),
	})
}

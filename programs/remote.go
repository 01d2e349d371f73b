/*
remote.go - Pre-built remote-delegated program configurations

PURPOSE:
  Programs whose eligibility/value math lives in the remote rules service.
  Each configuration declares the input variables to submit and the output
  variables expected back; the orchestrator merges declarations across
  programs so every (unit type, period) group costs one network call.

  State variants (co_medicaid, il_medicaid) are separate program keys over
  the same calculation; the canonical mapping collapses them onto the one
  "medicaid" already-has flag.
*/
package programs

import (
	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/rules"
)

// medicaidInputs is shared by every Medicaid variant.
func medicaidInputs() []rules.Input {
	return []rules.Input{
		rules.StateCode(),
		rules.Age(),
		rules.IsPregnant(),
		rules.IsDisabled(),
		rules.EmploymentIncome(),
		rules.SelfEmploymentIncome(),
		rules.SocialSecurityIncome(),
		rules.UnemploymentIncome(),
	}
}

// Medicaid defers per-member Medicaid eligibility to the rules service.
// Eligible when any member's computed benefit is positive; the value is
// the sum of eligible members' figures, monthly.
func Medicaid(id engine.ProgramID) *engine.RemoteCalculator {
	return engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Medicaid",
			Mode:        engine.ModeMember,
			ValueFormat: engine.ValueMonthly,
		},
		Unit:    rules.UnitMember,
		Inputs:  medicaidInputs(),
		Outputs: []rules.Output{{Variable: "medicaid", Unit: rules.UnitMember}},
	})
}

// Tanf defers cash assistance to the rules service, computed over the
// shared-resource (SPM) unit.
func Tanf(id engine.ProgramID) *engine.RemoteCalculator {
	return engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Temporary Assistance for Needy Families",
			Mode:        engine.ModeHousehold,
			ValueFormat: engine.ValueMonthly,
		},
		Unit: rules.UnitSPM,
		Inputs: []rules.Input{
			rules.StateCode(),
			rules.Age(),
			rules.EmploymentIncome(),
			rules.SelfEmploymentIncome(),
			rules.SocialSecurityIncome(),
			rules.UnemploymentIncome(),
			rules.ChildSupportExpense(),
		},
		Outputs: []rules.Output{{Variable: "tanf", Unit: rules.UnitSPM}},
	})
}

// Eitc defers the earned income tax credit to the rules service, computed
// over the tax unit and reported as a yearly credit.
func Eitc(id engine.ProgramID) *engine.RemoteCalculator {
	return engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Earned Income Tax Credit",
			Mode:        engine.ModeHousehold,
			ValueFormat: engine.ValueYearly,
		},
		Unit: rules.UnitTax,
		Inputs: []rules.Input{
			rules.StateCode(),
			rules.Age(),
			rules.TaxUnitHead(),
			rules.TaxUnitSpouse(),
			rules.TaxUnitDependent(),
			rules.EmploymentIncome(),
			rules.SelfEmploymentIncome(),
			rules.InvestmentIncome(),
		},
		Outputs: []rules.Output{{Variable: "eitc", Unit: rules.UnitTax}},
	})
}

// Csfp defers the commodity supplemental food program (senior food boxes)
// to the rules service, per member.
func Csfp(id engine.ProgramID) *engine.RemoteCalculator {
	return engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{
			ID:          id,
			Name:        "Commodity Supplemental Food Program",
			Mode:        engine.ModeMember,
			ValueFormat: engine.ValueMonthly,
		},
		Unit: rules.UnitMember,
		Inputs: []rules.Input{
			rules.StateCode(),
			rules.Age(),
			rules.EmploymentIncome(),
			rules.SocialSecurityIncome(),
			rules.ReportedSSI(),
		},
		Outputs: []rules.Output{{Variable: "commodity_supplemental_food_program", Unit: rules.UnitMember}},
	})
}

/*
Package factory provides JSON to Go program-catalog conversion.

PURPOSE:
  Converts JSON program definitions into calculators and the canonical
  benefit mapping. This enables program configuration without code
  changes - benefit analysts define programs in JSON, and the factory
  creates the proper calculator configurations.

JSON SCHEMA:
  {
    "fpl_year": 2023,
    "programs": [
      {
        "id": "co_snap",
        "name": "Colorado SNAP",
        "strategy": "local",
        "mode": "household",
        "value_format": "monthly",
        "income_limit_fpl_percent": 1.30,
        "amounts_by_size": {"1": 281, "2": 516},
        "amount_extra_per_person": 211
      },
      {
        "id": "co_medicaid",
        "strategy": "remote",
        "mode": "member",
        "value_format": "monthly",
        "unit": "people",
        "output_variable": "medicaid",
        "inputs": ["state_code", "age", "is_pregnant", "employment_income"]
      }
    ],
    "benefit_mapping": {"co_snap": "snap", "co_medicaid": "medicaid"}
  }

KEY FEATURES:
  - Validates structure and rejects unknown strategies/units/inputs
  - Sets sensible defaults (household mode, monthly format)
  - Builds the registry and mapping in one pass

SEE ALSO:
  - programs/catalog.go: the code-defined baseline catalog
  - engine/local.go, engine/remote.go: the calculator variants produced
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a program catalog.
type CatalogJSON struct {
	FPLYear        int               `json:"fpl_year"`
	Programs       []ProgramJSON     `json:"programs"`
	BenefitMapping map[string]string `json:"benefit_mapping,omitempty"`
}

// ProgramJSON is the JSON representation of one program.
type ProgramJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Strategy    string   `json:"strategy"` // "local" or "remote"
	Mode        string   `json:"mode,omitempty"`
	ValueFormat string   `json:"value_format,omitempty"`
	Statuses    []string `json:"legal_statuses,omitempty"`

	// Local-rule fields
	IncomeLimitFPL        float64            `json:"income_limit_fpl_percent,omitempty"`
	AmountsBySize         map[string]float64 `json:"amounts_by_size,omitempty"`
	AmountExtraPerPerson  float64            `json:"amount_extra_per_person,omitempty"`
	FixedValue            float64            `json:"fixed_value,omitempty"`
	FixedMemberValue      float64            `json:"fixed_member_value,omitempty"`
	MemberMinAge          int                `json:"member_min_age,omitempty"`
	MemberSeniorDisabled  bool               `json:"member_senior_or_disabled,omitempty"`
	RequiresPregnant      bool               `json:"requires_pregnant_member,omitempty"`

	// Remote-delegated fields
	Unit           string   `json:"unit,omitempty"`
	OutputVariable string   `json:"output_variable,omitempty"`
	Inputs         []string `json:"inputs,omitempty"`
	Year           int      `json:"year,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ProgramFactory converts JSON catalogs into registries.
type ProgramFactory struct {
	inputs map[string]func() rules.Input
}

// NewProgramFactory returns a factory knowing the built-in input variables.
func NewProgramFactory() *ProgramFactory {
	return &ProgramFactory{inputs: map[string]func() rules.Input{
		"state_code":                   func() rules.Input { return rules.StateCode() },
		"county_str":                   func() rules.Input { return rules.County() },
		"zip_code":                     func() rules.Input { return rules.ZipCode() },
		"age":                          func() rules.Input { return rules.Age() },
		"is_pregnant":                  func() rules.Input { return rules.IsPregnant() },
		"is_disabled":                  func() rules.Input { return rules.IsDisabled() },
		"is_blind":                     func() rules.Input { return rules.IsBlind() },
		"is_full_time_college_student": func() rules.Input { return rules.IsFullTimeStudent() },
		"is_tax_unit_head":             func() rules.Input { return rules.TaxUnitHead() },
		"is_tax_unit_spouse":           func() rules.Input { return rules.TaxUnitSpouse() },
		"is_tax_unit_dependent":        func() rules.Input { return rules.TaxUnitDependent() },
		"employment_income":            func() rules.Input { return rules.EmploymentIncome() },
		"self_employment_income":       func() rules.Input { return rules.SelfEmploymentIncome() },
		"social_security":              func() rules.Input { return rules.SocialSecurityIncome() },
		"unemployment_compensation":    func() rules.Input { return rules.UnemploymentIncome() },
		"capital_gains":                func() rules.Input { return rules.InvestmentIncome() },
		"taxable_pension_income":       func() rules.Input { return rules.PensionIncome() },
		"ssi":                          func() rules.Input { return rules.ReportedSSI() },
		"ssi_countable_resources":      func() rules.Input { return rules.SSICountableResources() },
		"child_support_expense":        func() rules.Input { return rules.ChildSupportExpense() },
	}}
}

// ParseCatalog converts a JSON catalog into a registry and benefit mapping.
func (f *ProgramFactory) ParseCatalog(data []byte) (*engine.Registry, engine.BenefitMapping, error) {
	var catalog CatalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(catalog.Programs) == 0 {
		return nil, nil, fmt.Errorf("parse catalog: no programs defined")
	}

	year := fpl.Year2023()
	if catalog.FPLYear != 0 && catalog.FPLYear != year.Year {
		// Only the bundled table is known here; other years come from the
		// income-limits import, which supplies its own fpl.Year.
		return nil, nil, fmt.Errorf("parse catalog: unsupported fpl_year %d", catalog.FPLYear)
	}

	calcs := make([]engine.Calculator, 0, len(catalog.Programs))
	for _, pj := range catalog.Programs {
		calc, err := f.buildProgram(pj, year)
		if err != nil {
			return nil, nil, err
		}
		calcs = append(calcs, calc)
	}

	registry, err := engine.NewRegistry(calcs...)
	if err != nil {
		return nil, nil, err
	}

	mapping := engine.BenefitMapping{}
	for key, canonical := range catalog.BenefitMapping {
		mapping[engine.ProgramID(key)] = canonical
	}
	return registry, mapping, nil
}

func (f *ProgramFactory) buildProgram(pj ProgramJSON, year *fpl.Year) (engine.Calculator, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("program with empty id")
	}

	program := engine.Program{
		ID:            engine.ProgramID(pj.ID),
		Name:          pj.Name,
		Mode:          engine.Mode(defaultString(pj.Mode, string(engine.ModeHousehold))),
		ValueFormat:   engine.ValueFormat(defaultString(pj.ValueFormat, string(engine.ValueMonthly))),
		LegalStatuses: pj.Statuses,
		Year:          year,
	}

	switch pj.Strategy {
	case "local":
		return f.buildLocal(pj, program, year)
	case "remote":
		return f.buildRemote(pj, program)
	default:
		return nil, fmt.Errorf("program %s: unknown strategy %q", pj.ID, pj.Strategy)
	}
}

func (f *ProgramFactory) buildLocal(pj ProgramJSON, program engine.Program, year *fpl.Year) (engine.Calculator, error) {
	cfg := engine.LocalConfig{Program: program}

	if pj.IncomeLimitFPL > 0 {
		percent := pj.IncomeLimitFPL
		cfg.HouseholdConditions = append(cfg.HouseholdConditions, engine.Condition{
			Name: "income_below_fpl",
			Test: func(rt *engine.Runtime) (bool, error) {
				limit := year.MonthlyPercent(rt.Screen.HouseholdSize(), percent)
				income := rt.Screen.GrossIncome(screener.PeriodMonthly, screener.IncomeAll)
				return income.LessThanOrEqual(limit), nil
			},
		})
	}

	if pj.RequiresPregnant {
		cfg.HouseholdConditions = append(cfg.HouseholdConditions, engine.Condition{
			Name: "pregnant_member",
			Test: func(rt *engine.Runtime) (bool, error) {
				for _, m := range rt.Screen.Members {
					if m.Pregnant {
						return true, nil
					}
				}
				return false, nil
			},
		})
	}

	switch program.Mode {
	case engine.ModeHousehold:
		value, err := householdValueFunc(pj)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", pj.ID, err)
		}
		cfg.HouseholdValue = value
	case engine.ModeMember:
		minAge := pj.MemberMinAge
		seniorDisabled := pj.MemberSeniorDisabled
		cfg.MemberConditions = append(cfg.MemberConditions, engine.MemberCondition{
			Name: "member_eligible",
			Test: func(rt *engine.Runtime, m *screener.HouseholdMember) (bool, error) {
				if seniorDisabled && m.HasDisability() {
					return true, nil
				}
				return m.AgeAt(rt.Now) >= minAge, nil
			},
		})
		if pj.FixedMemberValue <= 0 {
			return nil, fmt.Errorf("program %s: member mode requires fixed_member_value", pj.ID)
		}
		memberValue := decimal.NewFromFloat(pj.FixedMemberValue)
		cfg.MemberValue = func(*engine.Runtime, *screener.HouseholdMember) (decimal.Decimal, error) {
			return memberValue, nil
		}
	}

	return engine.NewLocal(cfg)
}

func householdValueFunc(pj ProgramJSON) (func(rt *engine.Runtime) (decimal.Decimal, error), error) {
	if len(pj.AmountsBySize) > 0 {
		table := map[int]decimal.Decimal{}
		max := 0
		for sizeStr, amount := range pj.AmountsBySize {
			var size int
			if _, err := fmt.Sscanf(sizeStr, "%d", &size); err != nil || size < 1 {
				return nil, fmt.Errorf("bad amounts_by_size key %q", sizeStr)
			}
			table[size] = decimal.NewFromFloat(amount)
			if size > max {
				max = size
			}
		}
		extra := decimal.NewFromFloat(pj.AmountExtraPerPerson)
		return func(rt *engine.Runtime) (decimal.Decimal, error) {
			size := rt.Screen.HouseholdSize()
			if size < 1 {
				size = 1
			}
			if v, ok := table[size]; ok {
				return v, nil
			}
			over := decimal.NewFromInt(int64(size - max))
			return table[max].Add(extra.Mul(over)), nil
		}, nil
	}
	if pj.FixedValue > 0 {
		v := decimal.NewFromFloat(pj.FixedValue)
		return func(*engine.Runtime) (decimal.Decimal, error) { return v, nil }, nil
	}
	return nil, fmt.Errorf("household mode requires amounts_by_size or fixed_value")
}

func (f *ProgramFactory) buildRemote(pj ProgramJSON, program engine.Program) (engine.Calculator, error) {
	if pj.OutputVariable == "" {
		return nil, fmt.Errorf("program %s: remote strategy requires output_variable", pj.ID)
	}
	unit := rules.UnitType(defaultString(pj.Unit, string(rules.UnitMember)))

	inputs := make([]rules.Input, 0, len(pj.Inputs))
	for _, name := range pj.Inputs {
		build, ok := f.inputs[name]
		if !ok {
			return nil, fmt.Errorf("program %s: unknown input variable %q", pj.ID, name)
		}
		inputs = append(inputs, build())
	}

	return engine.NewRemote(engine.RemoteConfig{
		Program: program,
		Unit:    unit,
		Year:    pj.Year,
		Inputs:  inputs,
		Outputs: []rules.Output{{Variable: pj.OutputVariable, Unit: unit}},
	})
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

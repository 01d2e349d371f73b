/*
local.go - Local-rule calculator

PURPOSE:
  Encodes hand-written eligibility predicates and value formulas for one
  program. Household conditions are ANDed; member conditions run
  independently per member. Whether member eligibility is required at all
  is the program's declared Mode, never inferred.

EDGE-CASE POLICY:
  A condition that fails because household data is missing resolves to
  ineligible with reason data_error. One malformed program must not abort
  evaluation of the others, so condition errors never escape Evaluate.

CONDITIONS:
  Conditions are named so failed ones can be reported for diagnostics and
  fixture debugging. They must be side-effect free; all of them are
  evaluated (no short-circuit) to collect the full failure list.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/screener"
)

// Condition is one household-level predicate.
type Condition struct {
	Name string
	Test func(rt *Runtime) (bool, error)
}

// MemberCondition is one member-level predicate, evaluated per member.
type MemberCondition struct {
	Name string
	Test func(rt *Runtime, m *screener.HouseholdMember) (bool, error)
}

// LocalConfig parameterizes a local-rule calculator. Exactly one of
// HouseholdValue / MemberValue is consulted, per the program's Mode.
type LocalConfig struct {
	Program Program

	// Dependencies declares the symbolic household fields the conditions
	// read. Used for instrumentation and validation, not auto-wiring.
	Dependencies []string

	HouseholdConditions []Condition
	MemberConditions    []MemberCondition

	// HouseholdValue computes the program value for household-mode
	// programs. Invoked only after eligibility is confirmed.
	HouseholdValue func(rt *Runtime) (decimal.Decimal, error)

	// MemberValue computes one member's value for member-mode programs;
	// the program value is the sum over eligible members.
	MemberValue func(rt *Runtime, m *screener.HouseholdMember) (decimal.Decimal, error)
}

// LocalCalculator is the local-rule Calculator variant.
type LocalCalculator struct {
	cfg LocalConfig
}

// NewLocal validates and wraps a local-rule configuration.
func NewLocal(cfg LocalConfig) (*LocalCalculator, error) {
	if cfg.Program.ID == "" {
		return nil, fmt.Errorf("local calculator: program key required")
	}
	switch cfg.Program.Mode {
	case ModeHousehold:
		if cfg.HouseholdValue == nil {
			return nil, fmt.Errorf("program %s: household mode requires HouseholdValue", cfg.Program.ID)
		}
	case ModeMember:
		if len(cfg.MemberConditions) == 0 {
			return nil, fmt.Errorf("program %s: member mode requires member conditions", cfg.Program.ID)
		}
		if cfg.MemberValue == nil {
			return nil, fmt.Errorf("program %s: member mode requires MemberValue", cfg.Program.ID)
		}
	default:
		return nil, fmt.Errorf("program %s: unknown mode %q", cfg.Program.ID, cfg.Program.Mode)
	}
	return &LocalCalculator{cfg: cfg}, nil
}

// MustLocal is NewLocal for statically-known configurations.
func MustLocal(cfg LocalConfig) *LocalCalculator {
	c, err := NewLocal(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *LocalCalculator) Program() Program { return c.cfg.Program }

// Dependencies returns the declared symbolic fields.
func (c *LocalCalculator) Dependencies() []string { return c.cfg.Dependencies }

// Evaluate runs the condition sets and, when they hold, the value formula.
func (c *LocalCalculator) Evaluate(rt *Runtime) (Result, error) {
	result := Result{Program: c.cfg.Program.ID, Value: decimal.Zero}

	if !c.cfg.Program.legalStatusSatisfied(rt.Screen) {
		result.FailedConditions = append(result.FailedConditions, legalStatusCondition)
	}

	for _, cond := range c.cfg.HouseholdConditions {
		ok, err := cond.Test(rt)
		if err != nil {
			r := ineligible(c.cfg.Program.ID, ReasonDataError)
			r.FailedConditions = []string{cond.Name}
			return r, nil
		}
		if !ok {
			result.FailedConditions = append(result.FailedConditions, cond.Name)
		}
	}

	if c.cfg.Program.Mode == ModeMember {
		for _, m := range rt.Screen.Members {
			memberOK := true
			for _, cond := range c.cfg.MemberConditions {
				ok, err := cond.Test(rt, m)
				if err != nil {
					r := ineligible(c.cfg.Program.ID, ReasonDataError)
					r.FailedConditions = []string{cond.Name}
					return r, nil
				}
				if !ok {
					memberOK = false
				}
			}
			if memberOK {
				result.EligibleMembers = append(result.EligibleMembers, m.ID)
			}
		}
		if len(result.EligibleMembers) == 0 {
			result.FailedConditions = append(result.FailedConditions, "no_eligible_member")
		}
	}

	if len(result.FailedConditions) > 0 {
		result.Eligible = false
		result.Reason = ReasonConditionFailed
		return result, nil
	}

	result.Eligible = true
	value, err := c.value(rt, result.EligibleMembers)
	if err != nil {
		r := ineligible(c.cfg.Program.ID, ReasonDataError)
		return r, nil
	}
	result.Value = value
	return result, nil
}

func (c *LocalCalculator) value(rt *Runtime, eligible []screener.MemberID) (decimal.Decimal, error) {
	if c.cfg.Program.Mode == ModeHousehold {
		return c.cfg.HouseholdValue(rt)
	}
	total := decimal.Zero
	for _, id := range eligible {
		m := rt.Screen.Member(id)
		if m == nil {
			continue
		}
		v, err := c.cfg.MemberValue(rt, m)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

/*
remote.go - Remote-delegated calculator

PURPOSE:
  Defers a program's eligibility and value math to the remote rules
  service. The calculator declares its input producers and expected
  outputs; the orchestrator merges those into one batched call per
  (unit type, period) and binds the response to the runtime before this
  calculator runs. The calculator itself never touches the network.

UNIT STRATEGIES:
  - UnitMember: the primary output is computed per person; the household
    is eligible if any member's output is positive, and the value sums
    the positive member figures.
  - UnitSPM / UnitTax: the primary output is computed once for the shared
    resource unit or tax unit.

VALUE SCALING:
  The service reports yearly dollar figures. A program with a monthly
  value format divides by twelve; yearly and lump-sum formats pass the
  figure through.
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

var twelve = decimal.NewFromInt(12)

// RemoteConfig parameterizes a remote-delegated calculator.
type RemoteConfig struct {
	Program Program

	// Unit is the entity granularity the primary output is computed over.
	Unit rules.UnitType

	// Year pins the calculation period; zero means the evaluation year.
	Year int

	// Inputs are the ordered input-variable producers.
	Inputs []rules.Input

	// Outputs are the expected output variables; the first is the primary
	// output driving the default eligibility/value derivation.
	Outputs []rules.Output

	// Derive overrides the default derivation entirely. It receives the
	// bound batch response and returns (eligible, value, eligible members).
	Derive func(rt *Runtime, resp *rules.BatchResponse) (bool, decimal.Decimal, []screener.MemberID, error)
}

// RemoteCalculator is the remote-delegated Calculator variant.
type RemoteCalculator struct {
	cfg RemoteConfig
}

// NewRemote validates and wraps a remote-delegated configuration.
func NewRemote(cfg RemoteConfig) (*RemoteCalculator, error) {
	if cfg.Program.ID == "" {
		return nil, fmt.Errorf("remote calculator: program key required")
	}
	if len(cfg.Outputs) == 0 {
		return nil, fmt.Errorf("program %s: at least one output required", cfg.Program.ID)
	}
	switch cfg.Unit {
	case rules.UnitMember, rules.UnitSPM, rules.UnitTax, rules.UnitHousehold:
	default:
		return nil, fmt.Errorf("program %s: unknown unit type %q", cfg.Program.ID, cfg.Unit)
	}
	return &RemoteCalculator{cfg: cfg}, nil
}

// MustRemote is NewRemote for statically-known configurations.
func MustRemote(cfg RemoteConfig) *RemoteCalculator {
	c, err := NewRemote(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *RemoteCalculator) Program() Program { return c.cfg.Program }

// Batch identifies this calculator's (unit type, period) group.
func (c *RemoteCalculator) Batch(now time.Time) rules.BatchKey {
	year := c.cfg.Year
	if year == 0 {
		year = now.Year()
	}
	return rules.BatchKey{Unit: c.cfg.Unit, Period: rules.PeriodForYear(year)}
}

func (c *RemoteCalculator) Inputs() []rules.Input   { return c.cfg.Inputs }
func (c *RemoteCalculator) Outputs() []rules.Output { return c.cfg.Outputs }

// primary is the output variable driving the default derivation.
func (c *RemoteCalculator) primary() rules.Output { return c.cfg.Outputs[0] }

// Evaluate derives eligibility and value from the already-fetched batch.
func (c *RemoteCalculator) Evaluate(rt *Runtime) (Result, error) {
	if !c.cfg.Program.legalStatusSatisfied(rt.Screen) {
		r := ineligible(c.cfg.Program.ID, ReasonConditionFailed)
		r.FailedConditions = []string{legalStatusCondition}
		return r, nil
	}

	key := c.Batch(rt.Now)
	resp, ok := rt.Batch(key)
	if !ok {
		return Result{}, &MissingRemoteOutputError{Program: c.cfg.Program.ID, Batch: key}
	}

	switch resp.Status {
	case rules.StatusUnavailable:
		return ineligible(c.cfg.Program.ID, ReasonRemoteUnavailable), nil
	case rules.StatusMalformed:
		return ineligible(c.cfg.Program.ID, ReasonRemoteInvalid), nil
	}

	if c.cfg.Derive != nil {
		eligible, value, members, err := c.cfg.Derive(rt, resp)
		if err != nil {
			return Result{}, err
		}
		if !eligible {
			r := ineligible(c.cfg.Program.ID, ReasonConditionFailed)
			return r, nil
		}
		return Result{
			Program:         c.cfg.Program.ID,
			Eligible:        true,
			Value:           value,
			EligibleMembers: members,
		}, nil
	}

	if c.cfg.Unit == rules.UnitMember {
		return c.deriveMember(rt, resp), nil
	}
	return c.deriveUnit(resp), nil
}

func (c *RemoteCalculator) deriveMember(rt *Runtime, resp *rules.BatchResponse) Result {
	variable := c.primary().Variable
	available := false
	total := decimal.Zero
	var eligibleMembers []screener.MemberID

	for _, m := range rt.Screen.Members {
		v, ok := resp.MemberValue(variable, m.ID)
		if !ok {
			continue
		}
		available = true
		if v.IsPositive() {
			eligibleMembers = append(eligibleMembers, m.ID)
			total = total.Add(c.scale(v))
		}
	}

	if !available {
		// The service answered but omitted this output entirely.
		return ineligible(c.cfg.Program.ID, ReasonRemoteUnavailable)
	}
	if len(eligibleMembers) == 0 {
		return ineligible(c.cfg.Program.ID, ReasonConditionFailed)
	}
	return Result{
		Program:         c.cfg.Program.ID,
		Eligible:        true,
		Value:           total,
		EligibleMembers: eligibleMembers,
	}
}

func (c *RemoteCalculator) deriveUnit(resp *rules.BatchResponse) Result {
	v, ok := resp.UnitValue(c.primary().Variable)
	if !ok {
		return ineligible(c.cfg.Program.ID, ReasonRemoteUnavailable)
	}
	if !v.IsPositive() {
		return ineligible(c.cfg.Program.ID, ReasonConditionFailed)
	}
	return Result{Program: c.cfg.Program.ID, Eligible: true, Value: c.scale(v)}
}

// scale converts the service's yearly figure to the program's value format.
func (c *RemoteCalculator) scale(yearly decimal.Decimal) decimal.Decimal {
	if c.cfg.Program.ValueFormat == ValueMonthly {
		return yearly.Div(twelve)
	}
	return yearly
}

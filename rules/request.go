/*
request.go - Wire request construction

PURPOSE:
  Translates a BatchRequest into the remote service's household document:
  entity groups keyed by unit type, entities keyed by instance id, and
  variables keyed by period. Requested outputs are submitted as nulls on
  the entities of the batch's unit type; the service fills them in.

SHAPE:
  {
    "household": {
      "people":     {"m1": {"age": {"2025": 64}}, ...},
      "households": {"household": {"members": ["m1"], "state_code": {"2025": "CO"}}},
      "spm_units":  {"spm_unit":  {"members": ["m1"], "snap": {"2025": null}}}
    }
  }
*/
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Instance ids for the single-instance unit groups. Every member shares
// one household, one SPM unit, and one tax unit.
const (
	householdEntity = "household"
	spmUnitEntity   = "spm_unit"
	taxUnitEntity   = "tax_unit"
)

type wireEntity map[string]any

type wireRequest struct {
	Household map[UnitType]map[string]wireEntity `json:"household"`
}

func unitEntity(unit UnitType) string {
	switch unit {
	case UnitSPM:
		return spmUnitEntity
	case UnitTax:
		return taxUnitEntity
	default:
		return householdEntity
	}
}

// buildWire assembles the household document. Inputs are deduplicated by
// variable name before this runs, and every input has already been
// validated by CheckInputs, so production failures here drop the variable
// rather than failing the batch.
func buildWire(req *BatchRequest) (*wireRequest, error) {
	if req.Screen == nil || len(req.Screen.Members) == 0 {
		return nil, fmt.Errorf("batch %s: empty screen", req.Key)
	}

	ctx := Context{Screen: req.Screen, Now: req.Now}
	period := string(req.Key.Period)

	people := make(map[string]wireEntity, len(req.Screen.Members))
	memberIDs := make([]string, 0, len(req.Screen.Members))
	for _, m := range req.Screen.Members {
		people[string(m.ID)] = wireEntity{}
		memberIDs = append(memberIDs, string(m.ID))
	}

	household := wireEntity{"members": memberIDs}
	groups := map[UnitType]map[string]wireEntity{
		UnitMember:    people,
		UnitHousehold: {householdEntity: household},
	}

	// The batch's unit group always exists, even with no inputs of its own,
	// because outputs are requested on it.
	if _, ok := groups[req.Key.Unit]; !ok {
		groups[req.Key.Unit] = map[string]wireEntity{
			unitEntity(req.Key.Unit): {"members": memberIDs},
		}
	}

	for _, in := range req.Inputs {
		switch v := in.(type) {
		case HouseholdInput:
			value, err := v.Value(ctx)
			if err != nil {
				continue
			}
			household[v.Variable()] = map[string]any{period: value}
		case MemberInput:
			for _, m := range req.Screen.Members {
				value, err := v.Value(ctx, m)
				if err != nil {
					continue
				}
				people[string(m.ID)][v.Variable()] = map[string]any{period: value}
			}
		}
	}

	for _, out := range req.Outputs {
		group, ok := groups[out.Unit]
		if !ok {
			group = map[string]wireEntity{unitEntity(out.Unit): {"members": memberIDs}}
			groups[out.Unit] = group
		}
		for _, entity := range group {
			entity[out.Variable] = map[string]any{period: nil}
		}
	}

	return &wireRequest{Household: groups}, nil
}

// Fingerprint identifies a batch for caching and coalescing: screen, unit,
// period, sorted variable names, and entity count. Two different screens
// can never share a fingerprint.
func (req *BatchRequest) Fingerprint() string {
	vars := make([]string, 0, len(req.Inputs)+len(req.Outputs))
	for _, in := range req.Inputs {
		vars = append(vars, string(in.Scope())+":"+in.Variable())
	}
	for _, out := range req.Outputs {
		vars = append(vars, string(out.Unit)+"?"+out.Variable)
	}
	sort.Strings(vars)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|", req.Screen.ID, req.Key, len(req.Screen.Members))
	for _, v := range vars {
		fmt.Fprintf(h, "%s|", v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DedupeInputs keeps the first producer per (scope, variable) pair,
// preserving declaration order.
func DedupeInputs(inputs []Input) []Input {
	seen := make(map[string]bool, len(inputs))
	out := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		key := string(in.Scope()) + ":" + in.Variable()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, in)
	}
	return out
}

// DedupeOutputs keeps the first occurrence per (unit, variable) pair.
func DedupeOutputs(outputs []Output) []Output {
	seen := make(map[Output]bool, len(outputs))
	out := make([]Output, 0, len(outputs))
	for _, o := range outputs {
		if seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

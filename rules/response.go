/*
response.go - Parsed batch responses

PURPOSE:
  A BatchResponse is the queryable result of one remote call. Lookups are
  typed and total: a value the service omitted reports unavailable instead
  of raising, and a response built from a failed call reports every lookup
  unavailable. Calculators translate unavailability into ineligibility
  reasons; they never see transport errors.

VALIDATION:
  Entity counts on the response must match what was submitted: the people
  group carries one entity per screen member, and every other unit group
  carries exactly one instance under its fixed id. A response describing a
  different entity set is malformed and every lookup on it is unavailable.
*/
package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMalformedResponse is returned when the service's response does not
// match the submitted entities. Recovered per batch as
// remote_response_invalid.
var ErrMalformedResponse = errors.New("malformed remote response")

// MalformedResponseError carries the entity-count mismatch details.
type MalformedResponseError struct {
	Key       BatchKey
	Group     UnitType
	Submitted int
	Returned  int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("batch %s: group %s returned %d entities, submitted %d",
		e.Key, e.Group, e.Returned, e.Submitted)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// =============================================================================
// BATCH RESPONSE
// =============================================================================

// Status reports how a batch resolved.
type Status string

const (
	// StatusOK: the call succeeded and entity counts matched.
	StatusOK Status = "ok"

	// StatusUnavailable: the call failed outright (network, timeout,
	// non-2xx). Every lookup reports unavailable.
	StatusUnavailable Status = "unavailable"

	// StatusMalformed: the service answered but the response failed
	// validation. Every lookup reports unavailable.
	StatusMalformed Status = "malformed"
)

// BatchResponse maps (entity, variable) to a value for one batch. It is
// household-specific and lives for one orchestrator run.
type BatchResponse struct {
	Key    BatchKey
	Screen screener.ScreenID
	Status Status

	// group -> entity id -> variable -> value (period already selected)
	values map[UnitType]map[string]map[string]decimal.Decimal
}

// Available reports whether any lookup can succeed.
func (r *BatchResponse) Available() bool { return r.Status == StatusOK }

// MemberValue looks up a member-scoped output. The second return is false
// when the value is unavailable (failed batch, omitted output, unknown
// member).
func (r *BatchResponse) MemberValue(variable string, id screener.MemberID) (decimal.Decimal, bool) {
	return r.lookup(UnitMember, string(id), variable)
}

// UnitValue looks up an output on the batch's unit instance (the single
// household, SPM unit, or tax unit).
func (r *BatchResponse) UnitValue(variable string) (decimal.Decimal, bool) {
	return r.lookup(r.Key.Unit, unitEntity(r.Key.Unit), variable)
}

func (r *BatchResponse) lookup(group UnitType, entity, variable string) (decimal.Decimal, bool) {
	if r.Status != StatusOK {
		return decimal.Zero, false
	}
	byEntity, ok := r.values[group]
	if !ok {
		return decimal.Zero, false
	}
	byVar, ok := byEntity[entity]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := byVar[variable]
	return v, ok
}

// NewUnavailable builds the fallback response for a failed call.
func NewUnavailable(key BatchKey, screen screener.ScreenID) *BatchResponse {
	return &BatchResponse{Key: key, Screen: screen, Status: StatusUnavailable}
}

// NewMalformed builds the response for a call that answered garbage.
func NewMalformed(key BatchKey, screen screener.ScreenID) *BatchResponse {
	return &BatchResponse{Key: key, Screen: screen, Status: StatusMalformed}
}

// NewStatic builds a pre-populated response. Used by tests and by any
// caller that needs to replay recorded service output.
func NewStatic(key BatchKey, screen screener.ScreenID,
	memberValues map[screener.MemberID]map[string]decimal.Decimal,
	unitValues map[string]decimal.Decimal) *BatchResponse {

	values := map[UnitType]map[string]map[string]decimal.Decimal{
		UnitMember: {},
	}
	for id, vars := range memberValues {
		values[UnitMember][string(id)] = vars
	}
	if unitValues != nil {
		values[key.Unit] = map[string]map[string]decimal.Decimal{
			unitEntity(key.Unit): unitValues,
		}
	}
	return &BatchResponse{Key: key, Screen: screen, Status: StatusOK, values: values}
}

// =============================================================================
// PARSING
// =============================================================================

type wireResponse struct {
	Result map[UnitType]map[string]map[string]json.RawMessage `json:"result"`
}

// parseResponse decodes the service's result document and validates entity
// counts against the submitted request.
func parseResponse(req *BatchRequest, body []byte) (*BatchResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("batch %s: decode response: %w", req.Key, err)
	}

	period := string(req.Key.Period)
	values := make(map[UnitType]map[string]map[string]decimal.Decimal, len(wire.Result))

	for group, entities := range wire.Result {
		if submitted, known := submittedEntities(req, group); known && len(entities) != submitted {
			return nil, &MalformedResponseError{
				Key:       req.Key,
				Group:     group,
				Submitted: submitted,
				Returned:  len(entities),
			}
		}

		byEntity := make(map[string]map[string]decimal.Decimal, len(entities))
		for entity, vars := range entities {
			byVar := make(map[string]decimal.Decimal)
			for variable, raw := range vars {
				if variable == "members" {
					continue
				}
				var periods map[string]any
				if err := json.Unmarshal(raw, &periods); err != nil {
					continue
				}
				value, ok := coerceValue(periods[period])
				if !ok {
					continue
				}
				byVar[variable] = value
			}
			byEntity[entity] = byVar
		}
		values[group] = byEntity
	}

	unitGroup := values[req.Key.Unit]
	if len(unitGroup) == 0 {
		submitted, _ := submittedEntities(req, req.Key.Unit)
		return nil, &MalformedResponseError{Key: req.Key, Group: req.Key.Unit, Submitted: submitted, Returned: 0}
	}
	if req.Key.Unit != UnitMember {
		// Counts matched, so a missing fixed id means the service answered
		// for a different instance than the one submitted.
		if _, ok := unitGroup[unitEntity(req.Key.Unit)]; !ok {
			return nil, &MalformedResponseError{
				Key:       req.Key,
				Group:     req.Key.Unit,
				Submitted: 1,
				Returned:  len(unitGroup),
			}
		}
	}

	return &BatchResponse{
		Key:    req.Key,
		Screen: req.Screen.ID,
		Status: StatusOK,
		values: values,
	}, nil
}

// submittedEntities reports how many entities the request submitted for a
// group. The people group tracks the screen's members; household, SPM-unit,
// and tax-unit groups each submit exactly one instance.
func submittedEntities(req *BatchRequest, group UnitType) (int, bool) {
	switch group {
	case UnitMember:
		return len(req.Screen.Members), true
	case UnitHousehold, UnitSPM, UnitTax:
		return 1, true
	default:
		return 0, false
	}
}

// coerceValue normalizes the service's mixed numeric/boolean outputs.
// Booleans become 1/0 so "eligible if output > 0" works uniformly.
func coerceValue(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case bool:
		if t {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

package factory_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/factory"
	"github.com/warp/benefit-engine/screener"
)

var evalDate = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

const catalogJSON = `{
	"fpl_year": 2023,
	"programs": [
		{
			"id": "co_snap",
			"name": "Colorado SNAP",
			"strategy": "local",
			"mode": "household",
			"value_format": "monthly",
			"income_limit_fpl_percent": 1.30,
			"amounts_by_size": {"1": 281, "2": 516, "3": 740},
			"amount_extra_per_person": 211
		},
		{
			"id": "co_transit",
			"strategy": "local",
			"mode": "member",
			"member_min_age": 65,
			"member_senior_or_disabled": true,
			"fixed_member_value": 38
		},
		{
			"id": "co_medicaid",
			"strategy": "remote",
			"mode": "member",
			"unit": "people",
			"output_variable": "medicaid",
			"inputs": ["state_code", "age", "is_pregnant", "employment_income"]
		}
	],
	"benefit_mapping": {"co_snap": "snap", "co_medicaid": "medicaid"}
}`

func TestParseCatalog_BuildsRegistryAndMapping(t *testing.T) {
	f := factory.NewProgramFactory()
	registry, mapping, err := f.ParseCatalog([]byte(catalogJSON))
	require.NoError(t, err)

	assert.Equal(t, []engine.ProgramID{"co_snap", "co_transit", "co_medicaid"}, registry.Programs())
	assert.Equal(t, "snap", mapping["co_snap"])
	assert.Equal(t, "medicaid", mapping["co_medicaid"])
}

func TestParseCatalog_LocalProgramEvaluates(t *testing.T) {
	// GIVEN: The JSON-defined food assistance program
	f := factory.NewProgramFactory()
	registry, _, err := f.ParseCatalog([]byte(catalogJSON))
	require.NoError(t, err)

	calc, err := registry.Lookup("co_snap")
	require.NoError(t, err)

	// WHEN: Evaluating a qualifying household of two
	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 30,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: decimal.NewFromInt(1500), Frequency: screener.FreqMonthly},
				}},
			{ID: "m2", Relationship: screener.RelChild, StoredAge: 6},
		},
	}
	result, err := calc.Evaluate(engine.NewRuntime(screen, evalDate))
	require.NoError(t, err)

	// THEN: The configured size table drives the value
	assert.True(t, result.Eligible)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(516)))
}

func TestParseCatalog_SizeTableExtrapolates(t *testing.T) {
	f := factory.NewProgramFactory()
	registry, _, err := f.ParseCatalog([]byte(catalogJSON))
	require.NoError(t, err)

	calc, err := registry.Lookup("co_snap")
	require.NoError(t, err)

	// Five people: table max (3 -> 740) plus two increments of 211.
	members := make([]*screener.HouseholdMember, 5)
	members[0] = &screener.HouseholdMember{ID: "m1", Relationship: screener.RelHead, StoredAge: 30}
	for i := 1; i < 5; i++ {
		members[i] = &screener.HouseholdMember{
			ID:           screener.MemberID(fmt.Sprintf("m%d", i+1)),
			Relationship: screener.RelChild,
			StoredAge:    5,
		}
	}
	screen := &screener.Screen{ID: "s1", State: "co", Members: members}

	result, err := calc.Evaluate(engine.NewRuntime(screen, evalDate))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(740+2*211)),
		"want %d, got %s", 740+2*211, result.Value)
}

func TestParseCatalog_MemberModeProgram(t *testing.T) {
	f := factory.NewProgramFactory()
	registry, _, err := f.ParseCatalog([]byte(catalogJSON))
	require.NoError(t, err)

	calc, err := registry.Lookup("co_transit")
	require.NoError(t, err)

	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 70},
			{ID: "m2", Relationship: screener.RelSpouse, StoredAge: 40, Disabled: true},
			{ID: "m3", Relationship: screener.RelChild, StoredAge: 10},
		},
	}
	result, err := calc.Evaluate(engine.NewRuntime(screen, evalDate))
	require.NoError(t, err)

	assert.True(t, result.Eligible)
	assert.Equal(t, []screener.MemberID{"m1", "m2"}, result.EligibleMembers)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(76)))
}

func TestParseCatalog_LegalStatusesEnforced(t *testing.T) {
	const restricted = `{
		"programs": [{
			"id": "p",
			"strategy": "local",
			"fixed_value": 100,
			"legal_statuses": ["citizen", "green_card"]
		}]
	}`

	f := factory.NewProgramFactory()
	registry, _, err := f.ParseCatalog([]byte(restricted))
	require.NoError(t, err)
	calc, err := registry.Lookup("p")
	require.NoError(t, err)

	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 30, LegalStatus: "student_visa"},
		},
	}
	result, err := calc.Evaluate(engine.NewRuntime(screen, evalDate))
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, engine.ReasonConditionFailed, result.Reason)
	assert.Contains(t, result.FailedConditions, "legal_status")

	screen.Members[0].LegalStatus = "green_card"
	result, err = calc.Evaluate(engine.NewRuntime(screen, evalDate))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
}

// =============================================================================
// REJECTIONS
// =============================================================================

func TestParseCatalog_Rejections(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"empty catalog", `{"fpl_year": 2023, "programs": []}`},
		{"unsupported fpl year", `{"fpl_year": 1999, "programs": [{"id": "p", "strategy": "local", "fixed_value": 1}]}`},
		{"unknown strategy", `{"programs": [{"id": "p", "strategy": "psychic"}]}`},
		{"missing id", `{"programs": [{"strategy": "local", "fixed_value": 1}]}`},
		{"unknown input variable", `{"programs": [{"id": "p", "strategy": "remote", "output_variable": "v", "inputs": ["favorite_color"]}]}`},
		{"remote without output", `{"programs": [{"id": "p", "strategy": "remote", "inputs": ["age"]}]}`},
		{"household local without value", `{"programs": [{"id": "p", "strategy": "local"}]}`},
		{"member local without member value", `{"programs": [{"id": "p", "strategy": "local", "mode": "member"}]}`},
		{"bad size key", `{"programs": [{"id": "p", "strategy": "local", "amounts_by_size": {"two": 516}}]}`},
		{"duplicate ids", `{"programs": [
			{"id": "p", "strategy": "local", "fixed_value": 1},
			{"id": "p", "strategy": "local", "fixed_value": 2}
		]}`},
		{"not json", `{{{`},
	}

	f := factory.NewProgramFactory()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.ParseCatalog([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

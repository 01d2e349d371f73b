package programs_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/programs"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

var evalDate = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

func runtimeFor(screen *screener.Screen) *engine.Runtime {
	return engine.NewRuntime(screen, evalDate)
}

// =============================================================================
// ALLOTMENT TABLE
// =============================================================================

func TestSnapMaxAllotment(t *testing.T) {
	cases := []struct {
		size int
		want string
	}{
		{1, "281"},
		{2, "516"},
		{4, "939"},
		{8, "1691"},
		{9, "1902"},  // 1691 + 211
		{11, "2324"}, // 1691 + 3*211
		{0, "281"},   // clamped to one person
	}

	for _, tc := range cases {
		got := programs.SnapMaxAllotment(tc.size)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"size %d: want %s, got %s", tc.size, tc.want, got)
	}
}

// =============================================================================
// PROGRAM EVALUATIONS
// =============================================================================

func TestSnap_IncomeTest(t *testing.T) {
	snap := programs.Snap("snap", fpl.Year2023())

	// GIVEN: A two-person household. 130% FPL for size 2 is 25636/year,
	// 2136.33/month.
	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 30,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: decimal.NewFromInt(2000), Frequency: screener.FreqMonthly},
				}},
			{ID: "m2", Relationship: screener.RelChild, StoredAge: 3},
		},
	}

	result, err := snap.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(516)))

	// WHEN: Income rises above the threshold
	screen.Members[0].IncomeStreams[0].Amount = decimal.NewFromInt(2200)
	result, err = snap.Evaluate(runtimeFor(screen))
	require.NoError(t, err)

	// THEN: The income condition is named in the failure
	assert.False(t, result.Eligible)
	assert.Equal(t, []string{"income_below_fpl"}, result.FailedConditions)
}

func TestMedicareSavings_SeniorUnderLimit(t *testing.T) {
	msp := programs.MedicareSavings("msp", fpl.Year2023())

	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 67,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeSSRetirement, Amount: decimal.NewFromInt(1000), Frequency: screener.FreqMonthly},
				}},
		},
	}

	result, err := msp.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.True(t, result.Value.Equal(decimal.RequireFromString("164.90")))
	assert.Equal(t, []screener.MemberID{"m1"}, result.EligibleMembers)
}

func TestMedicareSavings_DisabledAdultQualifies(t *testing.T) {
	msp := programs.MedicareSavings("msp", fpl.Year2023())

	// Under 65, but disabled.
	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 48, Disabled: true},
		},
	}

	result, err := msp.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, []screener.MemberID{"m1"}, result.EligibleMembers)
}

func TestNurseFamilyPartnership_RequiresPregnancy(t *testing.T) {
	nfp := programs.NurseFamilyPartnership("nfp", fpl.Year2023())

	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 25},
		},
	}

	result, err := nfp.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Contains(t, result.FailedConditions, "pregnant_member")

	screen.Members[0].Pregnant = true
	result, err = nfp.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(10200)))
}

func TestTransitReducedFare_MultipleEligibleMembersSum(t *testing.T) {
	transit := programs.TransitReducedFare("transit", fpl.Year2023())

	screen := &screener.Screen{
		ID: "s1", State: "co",
		Members: []*screener.HouseholdMember{
			{ID: "m1", Relationship: screener.RelHead, StoredAge: 70},
			{ID: "m2", Relationship: screener.RelSpouse, StoredAge: 68},
			{ID: "m3", Relationship: screener.RelChild, StoredAge: 30},
		},
	}

	result, err := transit.Evaluate(runtimeFor(screen))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, []screener.MemberID{"m1", "m2"}, result.EligibleMembers)
	assert.True(t, result.Value.Equal(decimal.NewFromInt(76)), "38 per eligible member")
}

// =============================================================================
// CATALOG
// =============================================================================

func TestDefaultCatalog_RegistersEveryProgram(t *testing.T) {
	registry, err := programs.DefaultCatalog(fpl.Year2023())
	require.NoError(t, err)

	want := []engine.ProgramID{
		"snap", "msp", "nfp", "transit_reduced_fare",
		"co_medicaid", "il_medicaid", "tanf", "eitc", "csfp",
	}
	assert.Equal(t, want, registry.Programs())

	for _, id := range want {
		_, err := registry.Lookup(id)
		assert.NoError(t, err, "program %s", id)
	}
}

func TestDefaultMapping_CollapsesStateVariants(t *testing.T) {
	mapping := programs.DefaultMapping()
	assert.Equal(t, "medicaid", mapping["co_medicaid"])
	assert.Equal(t, "medicaid", mapping["il_medicaid"])
	assert.Equal(t, "snap", mapping["snap"])
}

func TestRemotePrograms_BatchGroups(t *testing.T) {
	// Member-unit programs share one group; SPM and tax units get their own.
	medicaid := programs.Medicaid("co_medicaid")
	csfp := programs.Csfp("csfp")
	tanf := programs.Tanf("tanf")
	eitc := programs.Eitc("eitc")

	assert.Equal(t, medicaid.Batch(evalDate), csfp.Batch(evalDate))
	assert.Equal(t, rules.UnitSPM, tanf.Batch(evalDate).Unit)
	assert.Equal(t, rules.UnitTax, eitc.Batch(evalDate).Unit)
	assert.Equal(t, rules.PeriodForYear(2023), medicaid.Batch(evalDate).Period)
}

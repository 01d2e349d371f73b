package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/screener"
)

// =============================================================================
// STUB RULES CLIENT
// =============================================================================

// stubClient records batch requests and answers from a canned function.
type stubClient struct {
	mu      sync.Mutex
	calls   []*rules.BatchRequest
	respond func(req *rules.BatchRequest) *rules.BatchResponse
}

func (s *stubClient) Calculate(_ context.Context, req *rules.BatchRequest) *rules.BatchResponse {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(req)
	}
	return rules.NewUnavailable(req.Key, req.Screen.ID)
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func memberRemote(id engine.ProgramID, variable string) *engine.RemoteCalculator {
	return engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{ID: id, Mode: engine.ModeMember, ValueFormat: engine.ValueMonthly},
		Unit:    rules.UnitMember,
		Inputs:  []rules.Input{rules.StateCode(), rules.Age()},
		Outputs: []rules.Output{{Variable: variable, Unit: rules.UnitMember}},
	})
}

func localHousehold(id engine.ProgramID, value int64) *engine.LocalCalculator {
	return engine.MustLocal(engine.LocalConfig{
		Program:        engine.Program{ID: id, Mode: engine.ModeHousehold, ValueFormat: engine.ValueMonthly},
		HouseholdValue: fixedValue(value),
	})
}

// =============================================================================
// ORDERING AND PARTITIONING
// =============================================================================

func TestOrchestrator_ResultsInRequestOrder(t *testing.T) {
	// GIVEN: A mix of local and remote programs
	client := &stubClient{respond: func(req *rules.BatchRequest) *rules.BatchResponse {
		return rules.NewStatic(req.Key, req.Screen.ID,
			map[screener.MemberID]map[string]decimal.Decimal{
				"m1": {"medicaid": decimal.NewFromInt(1200)},
				"m2": {"medicaid": decimal.Zero},
			}, nil)
	}}

	registry, err := engine.NewRegistry(
		localHousehold("local_a", 100),
		memberRemote("remote_b", "medicaid"),
		localHousehold("local_c", 50),
	)
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, client, nil, engine.WithClock(fixedClock(evalDate)))

	// WHEN: Evaluating in a specific order
	results, err := orch.Evaluate(context.Background(), testScreen(),
		[]engine.ProgramID{"remote_b", "local_a", "local_c"})
	require.NoError(t, err)

	// THEN: One result per program, in request order
	require.Len(t, results, 3)
	assert.Equal(t, engine.ProgramID("remote_b"), results[0].Program)
	assert.Equal(t, engine.ProgramID("local_a"), results[1].Program)
	assert.Equal(t, engine.ProgramID("local_c"), results[2].Program)

	// Remote value: 1200 yearly scaled to 100 monthly.
	assert.True(t, results[0].Eligible)
	assert.True(t, results[0].Value.Equal(decimal.NewFromInt(100)),
		"want 100, got %s", results[0].Value)
	assert.Equal(t, []screener.MemberID{"m1"}, results[0].EligibleMembers)
}

func TestOrchestrator_OneCallPerBatchGroup(t *testing.T) {
	// GIVEN: Two programs sharing the (people, period) group
	client := &stubClient{respond: func(req *rules.BatchRequest) *rules.BatchResponse {
		return rules.NewStatic(req.Key, req.Screen.ID,
			map[screener.MemberID]map[string]decimal.Decimal{
				"m1": {"medicaid": decimal.NewFromInt(600), "csfp": decimal.NewFromInt(240)},
				"m2": {"medicaid": decimal.Zero, "csfp": decimal.Zero},
			}, nil)
	}}

	registry, err := engine.NewRegistry(
		memberRemote("co_medicaid", "medicaid"),
		memberRemote("il_medicaid", "medicaid"),
		memberRemote("csfp", "csfp"),
	)
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, client, nil, engine.WithClock(fixedClock(evalDate)))

	results, err := orch.Evaluate(context.Background(), testScreen(),
		[]engine.ProgramID{"co_medicaid", "il_medicaid", "csfp"})
	require.NoError(t, err)

	// THEN: Exactly one outbound call served all three programs
	assert.Equal(t, 1, client.callCount())
	for _, r := range results {
		assert.True(t, r.Eligible, "program %s", r.Program)
	}
}

func TestOrchestrator_MissingDataSkipsNetworkCall(t *testing.T) {
	// GIVEN: A screen with no state code, which every remote input needs
	screen := testScreen()
	screen.State = ""

	client := &stubClient{}
	registry, err := engine.NewRegistry(memberRemote("co_medicaid", "medicaid"))
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, client, nil, engine.WithClock(fixedClock(evalDate)))

	results, err := orch.Evaluate(context.Background(), screen, []engine.ProgramID{"co_medicaid"})
	require.NoError(t, err)

	// THEN: The program resolves to data_error and no call went out
	assert.Equal(t, 0, client.callCount())
	assert.False(t, results[0].Eligible)
	assert.Equal(t, engine.ReasonDataError, results[0].Reason)
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestOrchestrator_BatchFailureIsolatedPerGroup(t *testing.T) {
	// GIVEN: The SPM-unit batch fails while the people batch succeeds
	client := &stubClient{respond: func(req *rules.BatchRequest) *rules.BatchResponse {
		if req.Key.Unit == rules.UnitSPM {
			return rules.NewUnavailable(req.Key, req.Screen.ID)
		}
		return rules.NewStatic(req.Key, req.Screen.ID,
			map[screener.MemberID]map[string]decimal.Decimal{
				"m1": {"medicaid": decimal.NewFromInt(1200)},
				"m2": {"medicaid": decimal.Zero},
			}, nil)
	}}

	spm := engine.MustRemote(engine.RemoteConfig{
		Program: engine.Program{ID: "tanf", Mode: engine.ModeHousehold, ValueFormat: engine.ValueMonthly},
		Unit:    rules.UnitSPM,
		Inputs:  []rules.Input{rules.StateCode()},
		Outputs: []rules.Output{{Variable: "tanf", Unit: rules.UnitSPM}},
	})

	registry, err := engine.NewRegistry(
		memberRemote("co_medicaid", "medicaid"),
		spm,
		localHousehold("snap_like", 281),
	)
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, client, nil, engine.WithClock(fixedClock(evalDate)))

	results, err := orch.Evaluate(context.Background(), testScreen(),
		[]engine.ProgramID{"co_medicaid", "tanf", "snap_like"})
	require.NoError(t, err)

	// THEN: Only the SPM program degrades
	assert.True(t, results[0].Eligible, "medicaid unaffected")
	assert.False(t, results[1].Eligible)
	assert.Equal(t, engine.ReasonRemoteUnavailable, results[1].Reason)
	assert.True(t, results[2].Eligible, "local program unaffected")
}

func TestOrchestrator_UnknownProgram(t *testing.T) {
	registry, err := engine.NewRegistry(localHousehold("known", 10))
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, &stubClient{}, nil)

	results, err := orch.Evaluate(context.Background(), testScreen(),
		[]engine.ProgramID{"known", "mystery"})
	require.NoError(t, err)

	assert.True(t, results[0].Eligible)
	assert.False(t, results[1].Eligible)
	assert.Equal(t, engine.ReasonEvaluationError, results[1].Reason)
	assert.Equal(t, engine.ProgramID("mystery"), results[1].Program)
}

func TestOrchestrator_PanickingCalculatorIsIsolated(t *testing.T) {
	bomb := engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{ID: "bomb", Mode: engine.ModeHousehold},
		HouseholdValue: func(*engine.Runtime) (decimal.Decimal, error) {
			panic("boom")
		},
	})

	registry, err := engine.NewRegistry(bomb, localHousehold("fine", 10))
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, &stubClient{}, nil)

	results, err := orch.Evaluate(context.Background(), testScreen(),
		[]engine.ProgramID{"bomb", "fine"})
	require.NoError(t, err)

	assert.False(t, results[0].Eligible)
	assert.Equal(t, engine.ReasonEvaluationError, results[0].Reason)
	assert.True(t, results[1].Eligible)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestOrchestrator_AlreadyHasOverride(t *testing.T) {
	// GIVEN: A household already receiving the benefit behind "snap_like"
	screen := testScreen()
	screen.Benefits["snap"] = true

	registry, err := engine.NewRegistry(localHousehold("snap_like", 281))
	require.NoError(t, err)

	filter := engine.NewAlreadyHasFilter(engine.BenefitMapping{"snap_like": "snap"})
	orch := engine.NewOrchestrator(registry, &stubClient{}, filter)

	results, err := orch.Evaluate(context.Background(), screen, []engine.ProgramID{"snap_like"})
	require.NoError(t, err)

	// THEN: Passing conditions are overridden, value zeroed
	assert.False(t, results[0].Eligible)
	assert.Equal(t, engine.ReasonAlreadyHas, results[0].Reason)
	assert.True(t, results[0].Value.IsZero())
	assert.Empty(t, results[0].EligibleMembers)
}

func TestOrchestrator_RoundsValuesToCents(t *testing.T) {
	uneven := engine.MustLocal(engine.LocalConfig{
		Program: engine.Program{ID: "uneven", Mode: engine.ModeHousehold},
		HouseholdValue: func(*engine.Runtime) (decimal.Decimal, error) {
			return decimal.RequireFromString("33.3333333"), nil
		},
	})

	registry, err := engine.NewRegistry(uneven)
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, &stubClient{}, nil)

	results, err := orch.Evaluate(context.Background(), testScreen(), []engine.ProgramID{"uneven"})
	require.NoError(t, err)
	assert.Equal(t, "33.33", results[0].Value.StringFixed(2))
}

// =============================================================================
// CANCELLATION AND VALIDATION
// =============================================================================

func TestOrchestrator_NilScreen(t *testing.T) {
	registry, err := engine.NewRegistry(localHousehold("p", 1))
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, &stubClient{}, nil)
	_, err = orch.Evaluate(context.Background(), nil, []engine.ProgramID{"p"})
	assert.ErrorIs(t, err, engine.ErrNoScreen)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	registry, err := engine.NewRegistry(memberRemote("co_medicaid", "medicaid"))
	require.NoError(t, err)

	orch := engine.NewOrchestrator(registry, &stubClient{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = orch.Evaluate(ctx, testScreen(), []engine.ProgramID{"co_medicaid"})
	assert.ErrorIs(t, err, context.Canceled)
}

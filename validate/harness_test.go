package validate_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/programs"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/validate"
)

var evalDate = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

// unavailableClient answers every batch as unavailable. The default
// fixture set only exercises local-rule programs, so it never matters.
type unavailableClient struct{}

func (unavailableClient) Calculate(_ context.Context, req *rules.BatchRequest) *rules.BatchResponse {
	return rules.NewUnavailable(req.Key, req.Screen.ID)
}

func testOrchestrator(t *testing.T) *engine.Orchestrator {
	t.Helper()
	registry, err := programs.DefaultCatalog(fpl.Year2023())
	require.NoError(t, err)
	return engine.NewOrchestrator(registry, unavailableClient{},
		engine.NewAlreadyHasFilter(programs.DefaultMapping()),
		engine.WithClock(func() time.Time { return evalDate }),
	)
}

func TestHarness_DefaultFixturesPass(t *testing.T) {
	// GIVEN: The built-in catalog and the shipped fixture set
	harness := validate.NewHarness(testOrchestrator(t))

	// WHEN: Running the full set
	mismatches, err := harness.Run(context.Background(), validate.DefaultFixtures())
	require.NoError(t, err)

	// THEN: Every expectation holds
	for _, m := range mismatches {
		t.Errorf("unexpected mismatch: %s", m)
	}
}

func TestHarness_ReportsValueDrift(t *testing.T) {
	// GIVEN: A fixture whose expected allotment is deliberately stale
	fixtures := validate.DefaultFixtures()[:1]
	fixtures[0].Expected[0].Value = decimal.RequireFromString("430")

	harness := validate.NewHarness(testOrchestrator(t))
	mismatches, err := harness.Run(context.Background(), fixtures)
	require.NoError(t, err)

	// THEN: The drift is reported by fixture, program, and field
	require.Len(t, mismatches, 1)
	m := mismatches[0]
	assert.Equal(t, "single-parent-low-income", m.Fixture)
	assert.Equal(t, engine.ProgramID("snap"), m.Program)
	assert.Equal(t, "value", m.Field)
	assert.Equal(t, "430.00", m.Want)
	assert.Equal(t, "516.00", m.Got)
	assert.Contains(t, m.String(), "single-parent-low-income/snap")
}

func TestHarness_ReportsEligibilityFlip(t *testing.T) {
	fixtures := validate.DefaultFixtures()[:1]
	fixtures[0].Expected[1].Eligible = true // nfp needs a pregnant member

	harness := validate.NewHarness(testOrchestrator(t))
	mismatches, err := harness.Run(context.Background(), fixtures)
	require.NoError(t, err)

	require.Len(t, mismatches, 1)
	assert.Equal(t, "eligible", mismatches[0].Field)
	assert.Equal(t, engine.ProgramID("nfp"), mismatches[0].Program)
}

func TestHarness_CancelledContextIsAnError(t *testing.T) {
	harness := validate.NewHarness(testOrchestrator(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := harness.Run(ctx, validate.DefaultFixtures())
	assert.ErrorIs(t, err, context.Canceled)
}

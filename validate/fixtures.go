/*
fixtures.go - Canned households with known-good outcomes

PURPOSE:
  Hand-checked households exercising the local-rule programs. Each fixture
  was verified against the published 2023 poverty guidelines and allotment
  tables; when those tables change, these expectations change with them in
  the same commit.

  Only local-rule programs appear here so the default set is deterministic
  against any rules client. Remote-delegated programs are validated in
  tests with a pinned static client instead.

AVAILABLE FIXTURES:
  single-parent-low-income: working parent + child, under every threshold
  senior-fixed-income:      one senior on social security
  pregnant-household:       expecting couple, nurse visit program
  already-enrolled:         would qualify, but already receives the benefit
  over-income:              comfortably above every threshold
*/
package validate

import (
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/screener"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultFixtures returns the built-in validation set.
func DefaultFixtures() []Fixture {
	return []Fixture{
		singleParentLowIncome(),
		seniorFixedIncome(),
		pregnantHousehold(),
		alreadyEnrolled(),
		overIncome(),
	}
}

// Working parent earning $1,200/month with a four-year-old. Well under the
// 130% FPL gross test for a household of two; allotment is the size-2
// maximum.
func singleParentLowIncome() Fixture {
	screen := &screener.Screen{
		ID:    "fixture-single-parent",
		State: "co", County: "Denver County", ZipCode: "80203",
		Members: []*screener.HouseholdMember{
			{
				ID: "m1", Relationship: screener.RelHead, StoredAge: 29,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: money("1200"), Frequency: screener.FreqMonthly},
				},
			},
			{ID: "m2", Relationship: screener.RelChild, StoredAge: 4},
		},
		Benefits: map[string]bool{},
	}
	return Fixture{
		Name:   "single-parent-low-income",
		Screen: screen,
		Expected: []Expectation{
			{Program: "snap", Eligible: true, Value: money("516")},
			{Program: "nfp", Eligible: false, Reason: engine.ReasonConditionFailed},
			{Program: "transit_reduced_fare", Eligible: false, Reason: engine.ReasonConditionFailed},
		},
	}
}

// One 70-year-old on $900/month social security. Qualifies for food
// assistance, the Part B premium program, and reduced fares.
func seniorFixedIncome() Fixture {
	screen := &screener.Screen{
		ID:    "fixture-senior",
		State: "co", County: "Pueblo County", ZipCode: "81003",
		Members: []*screener.HouseholdMember{
			{
				ID: "m1", Relationship: screener.RelHead, StoredAge: 70,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeSSRetirement, Amount: money("900"), Frequency: screener.FreqMonthly},
				},
			},
		},
		Benefits: map[string]bool{},
	}
	return Fixture{
		Name:   "senior-fixed-income",
		Screen: screen,
		Expected: []Expectation{
			{Program: "snap", Eligible: true, Value: money("281")},
			{Program: "msp", Eligible: true, Value: money("164.90")},
			{Program: "transit_reduced_fare", Eligible: true, Value: money("38")},
		},
	}
}

// Expecting couple on one $2,000/month wage. Under 200% FPL for the nurse
// visit program and under the 130% food assistance test.
func pregnantHousehold() Fixture {
	screen := &screener.Screen{
		ID:    "fixture-pregnant",
		State: "co", County: "El Paso County", ZipCode: "80903",
		Members: []*screener.HouseholdMember{
			{
				ID: "m1", Relationship: screener.RelHead, StoredAge: 24, Pregnant: true,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: money("2000"), Frequency: screener.FreqMonthly},
				},
			},
			{ID: "m2", Relationship: screener.RelSpouse, StoredAge: 26},
		},
		Benefits: map[string]bool{},
	}
	return Fixture{
		Name:   "pregnant-household",
		Screen: screen,
		Expected: []Expectation{
			{Program: "nfp", Eligible: true, Value: money("10200")},
			{Program: "snap", Eligible: true, Value: money("516")},
		},
	}
}

// Identical to the single-parent household but already receiving food
// assistance; the already-has filter must zero it out.
func alreadyEnrolled() Fixture {
	f := singleParentLowIncome()
	f.Name = "already-enrolled"
	f.Screen.ID = "fixture-already-enrolled"
	f.Screen.Benefits = map[string]bool{"snap": true}
	f.Expected = []Expectation{
		{Program: "snap", Eligible: false, Reason: engine.ReasonAlreadyHas},
	}
	return f
}

// Two high earners with a child; above every income threshold.
func overIncome() Fixture {
	screen := &screener.Screen{
		ID:    "fixture-over-income",
		State: "co", County: "Boulder County", ZipCode: "80302",
		Members: []*screener.HouseholdMember{
			{
				ID: "m1", Relationship: screener.RelHead, StoredAge: 41,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: money("5200"), Frequency: screener.FreqMonthly},
				},
			},
			{
				ID: "m2", Relationship: screener.RelSpouse, StoredAge: 39,
				IncomeStreams: []screener.IncomeStream{
					{Type: screener.IncomeWages, Amount: money("3800"), Frequency: screener.FreqMonthly},
				},
			},
			{ID: "m3", Relationship: screener.RelChild, StoredAge: 9},
		},
		Benefits: map[string]bool{},
	}
	return Fixture{
		Name:   "over-income",
		Screen: screen,
		Expected: []Expectation{
			{Program: "snap", Eligible: false, Reason: engine.ReasonConditionFailed},
			{Program: "nfp", Eligible: false, Reason: engine.ReasonConditionFailed},
		},
	}
}

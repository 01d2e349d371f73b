package fpl_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/benefit-engine/fpl"
)

func TestLimit_PublishedSizes(t *testing.T) {
	year := fpl.Year2023()

	assert.True(t, year.Limit(1).Equal(decimal.NewFromInt(14580)))
	assert.True(t, year.Limit(4).Equal(decimal.NewFromInt(30000)))
	assert.True(t, year.Limit(8).Equal(decimal.NewFromInt(50560)))
}

func TestLimit_ExtrapolatesBeyondTable(t *testing.T) {
	// GIVEN: The table tops out at size 8
	// WHEN: Asking for size 10
	// THEN: Two increments of the additional-person amount
	year := fpl.Year2023()

	want := decimal.NewFromInt(50560 + 2*5140)
	assert.True(t, year.Limit(10).Equal(want), "want %s, got %s", want, year.Limit(10))
}

func TestLimit_ClampsSizeBelowOne(t *testing.T) {
	year := fpl.Year2023()
	assert.True(t, year.Limit(0).Equal(year.Limit(1)))
	assert.True(t, year.Limit(-3).Equal(year.Limit(1)))
}

func TestPercent_And_MonthlyPercent(t *testing.T) {
	year := fpl.Year2023()

	// 130% of the size-1 limit.
	want := decimal.RequireFromString("18954")
	assert.True(t, year.Percent(1, 1.30).Equal(want))

	monthly := year.MonthlyPercent(1, 1.30)
	assert.True(t, monthly.Equal(want.Div(decimal.NewFromInt(12))))
}

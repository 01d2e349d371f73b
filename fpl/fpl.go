/*
Package fpl provides federal poverty limit tables.

PURPOSE:
  Benefit programs compare household income against the federal poverty
  guidelines for a given year. A Year holds the published limits per
  household size and extrapolates beyond the largest published size.

USAGE:
  year := fpl.Year2023()
  limit := year.Limit(4)                    // $30,000
  cap := year.Percent(4, 1.30)              // 130% of the limit

SEE ALSO:
  - programs/local.go: income-threshold conditions built on these tables
*/
package fpl

import "github.com/shopspring/decimal"

// Year is one year's poverty guideline table. Limits are annual dollars
// keyed by household size; Additional is the increment per person above
// the largest published size.
type Year struct {
	Year       int
	Limits     map[int]decimal.Decimal
	Additional decimal.Decimal
}

// NewYear builds a table from annual dollar amounts for sizes 1..len(limits).
func NewYear(year int, limits []int64, additional int64) *Year {
	table := make(map[int]decimal.Decimal, len(limits))
	for i, v := range limits {
		table[i+1] = decimal.NewFromInt(v)
	}
	return &Year{Year: year, Limits: table, Additional: decimal.NewFromInt(additional)}
}

// Limit returns the annual poverty limit for the household size.
// Sizes above the published table add Additional per extra person.
func (y *Year) Limit(householdSize int) decimal.Decimal {
	if householdSize < 1 {
		householdSize = 1
	}
	max := 0
	for size := range y.Limits {
		if size > max {
			max = size
		}
	}
	if householdSize <= max {
		return y.Limits[householdSize]
	}
	extra := decimal.NewFromInt(int64(householdSize - max))
	return y.Limits[max].Add(y.Additional.Mul(extra))
}

// Percent returns the annual limit scaled by a percentage (1.30 = 130%).
func (y *Year) Percent(householdSize int, percent float64) decimal.Decimal {
	return y.Limit(householdSize).Mul(decimal.NewFromFloat(percent))
}

// MonthlyPercent returns the scaled limit as a monthly figure.
func (y *Year) MonthlyPercent(householdSize int, percent float64) decimal.Decimal {
	return y.Percent(householdSize, percent).Div(decimal.NewFromInt(12))
}

// Year2023 returns the 2023 guidelines for the 48 contiguous states.
func Year2023() *Year {
	return NewYear(2023,
		[]int64{14580, 19720, 24860, 30000, 35140, 40280, 45420, 50560},
		5140,
	)
}

package screener

import "github.com/shopspring/decimal"

// =============================================================================
// INCOME STREAMS - Declared income with a payment frequency
// =============================================================================

// IncomeType categorizes an income stream for subset aggregation.
// Calculators request either IncomeAll or a named set of types.
type IncomeType string

const (
	IncomeWages          IncomeType = "wages"
	IncomeSelfEmployment IncomeType = "self_employment"
	IncomeSSI            IncomeType = "ssi"
	IncomeSSDisability   IncomeType = "ss_disability"
	IncomeSSRetirement   IncomeType = "ss_retirement"
	IncomeSSSurvivor     IncomeType = "ss_survivor"
	IncomePension        IncomeType = "pension"
	IncomeVeteran        IncomeType = "veteran"
	IncomeUnemployment   IncomeType = "unemployment"
	IncomeInvestment     IncomeType = "investment"
	IncomeRental         IncomeType = "rental"
	IncomeChildSupport   IncomeType = "child_support"
	IncomeAlimony        IncomeType = "alimony"
	IncomeGifts          IncomeType = "gifts"
	IncomeCashAssistance IncomeType = "cash_assistance"
)

// IncomeAll selects every income type when passed to the aggregation
// helpers. It is a sentinel, not a real type.
const IncomeAll IncomeType = "all"

// Frequency is how often an income amount is received.
type Frequency string

const (
	FreqWeekly      Frequency = "weekly"
	FreqBiweekly    Frequency = "biweekly"
	FreqSemimonthly Frequency = "semimonthly"
	FreqMonthly     Frequency = "monthly"
	FreqYearly      Frequency = "yearly"
	FreqHourly      Frequency = "hourly"
)

// IncomePeriod is the period calculators aggregate income over.
type IncomePeriod string

const (
	PeriodMonthly IncomePeriod = "monthly"
	PeriodYearly  IncomePeriod = "yearly"
)

// IncomeStream is one declared source of income. Amount is interpreted
// per Frequency; HoursWorked only applies to hourly streams.
type IncomeStream struct {
	Type        IncomeType
	Amount      decimal.Decimal
	Frequency   Frequency
	HoursWorked decimal.Decimal // weekly hours, hourly streams only
}

var (
	weeksPerMonth = decimal.RequireFromString("4.35")
	monthsPerYear = decimal.NewFromInt(12)
	two           = decimal.NewFromInt(2)
)

// Monthly normalizes the stream to a monthly figure.
func (s IncomeStream) Monthly() decimal.Decimal {
	switch s.Frequency {
	case FreqWeekly:
		return s.Amount.Mul(weeksPerMonth)
	case FreqBiweekly:
		return s.Amount.Mul(weeksPerMonth).Div(two)
	case FreqSemimonthly:
		return s.Amount.Mul(two)
	case FreqMonthly:
		return s.Amount
	case FreqYearly:
		return s.Amount.Div(monthsPerYear)
	case FreqHourly:
		return s.Amount.Mul(s.HoursWorked).Mul(weeksPerMonth)
	default:
		return decimal.Zero
	}
}

// Yearly normalizes the stream to a yearly figure.
func (s IncomeStream) Yearly() decimal.Decimal {
	return s.Monthly().Mul(monthsPerYear)
}

// matches reports whether the stream belongs to the requested subset.
func (s IncomeStream) matches(types []IncomeType) bool {
	for _, t := range types {
		if t == IncomeAll || t == s.Type {
			return true
		}
	}
	return false
}

func sumIncome(streams []IncomeStream, period IncomePeriod, types []IncomeType) decimal.Decimal {
	total := decimal.Zero
	for _, s := range streams {
		if !s.matches(types) {
			continue
		}
		if period == PeriodYearly {
			total = total.Add(s.Yearly())
		} else {
			total = total.Add(s.Monthly())
		}
	}
	return total
}

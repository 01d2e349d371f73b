package screener

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOUSEHOLD MEMBER - One person on a screen
// =============================================================================

type MemberID string

// Relationship is the member's role relative to the head of household.
type Relationship string

const (
	RelHead          Relationship = "head"
	RelSpouse        Relationship = "spouse"
	RelChild         Relationship = "child"
	RelFosterChild   Relationship = "foster_child"
	RelParent        Relationship = "parent"
	RelOtherRelative Relationship = "other_relative"
	RelUnrelated     Relationship = "unrelated"
)

// InsuranceType is one kind of coverage a member reports holding.
type InsuranceType string

const (
	InsuranceNone     InsuranceType = "none"
	InsuranceEmployer InsuranceType = "employer"
	InsurancePrivate  InsuranceType = "private"
	InsuranceMedicaid InsuranceType = "medicaid"
	InsuranceMedicare InsuranceType = "medicare"
	InsuranceCHP      InsuranceType = "chp"
	InsuranceVA       InsuranceType = "va"
)

// HouseholdMember belongs to exactly one Screen. The engine treats members
// as read-only; all derived data comes from the accessor methods.
type HouseholdMember struct {
	ID           MemberID
	Relationship Relationship

	// Birth year/month take precedence over StoredAge when present.
	BirthYear  int
	BirthMonth time.Month
	StoredAge  int

	Pregnant           bool
	Student            bool
	Veteran            bool
	Disabled           bool
	VisuallyImpaired   bool
	LongTermDisability bool

	LegalStatus string

	IncomeStreams []IncomeStream
	Insurance     []InsuranceType
}

// AgeAt returns the member's age at the evaluation date. When a birth
// year/month is present it is used; otherwise the stored age. The result
// never reflects a future date: a birth date after the evaluation date
// yields zero.
func (m *HouseholdMember) AgeAt(at time.Time) int {
	if m.BirthYear == 0 {
		return m.StoredAge
	}
	month := m.BirthMonth
	if month == 0 {
		month = time.January
	}
	age := at.Year() - m.BirthYear
	if at.Month() < month {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// IsHead reports whether this member is the head of household.
func (m *HouseholdMember) IsHead() bool { return m.Relationship == RelHead }

// IsSpouse reports whether this member is the head's spouse.
func (m *HouseholdMember) IsSpouse() bool { return m.Relationship == RelSpouse }

// IsDependent reports whether this member is claimed as a dependent.
func (m *HouseholdMember) IsDependent() bool {
	return m.Relationship == RelChild || m.Relationship == RelFosterChild
}

// HasDisability folds the three disability flags into one answer.
// Blindness counts as a disability for every program that asks.
func (m *HouseholdMember) HasDisability() bool {
	return m.Disabled || m.LongTermDisability || m.VisuallyImpaired
}

// HasInsurance reports whether the member holds any of the given coverages.
func (m *HouseholdMember) HasInsurance(types ...InsuranceType) bool {
	for _, have := range m.Insurance {
		for _, want := range types {
			if have == want {
				return true
			}
		}
	}
	return false
}

// GrossIncome aggregates this member's income streams over the period,
// restricted to the requested types (IncomeAll for everything).
func (m *HouseholdMember) GrossIncome(period IncomePeriod, types ...IncomeType) decimal.Decimal {
	return sumIncome(m.IncomeStreams, period, types)
}

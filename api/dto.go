/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Dollar amounts cross the wire as JSON numbers and are converted to
  decimals at the boundary. Internal math never touches float64.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - screener: the domain aggregate behind ScreenDTO
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/screener"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/validate"
)

// =============================================================================
// SCREEN TYPES
// =============================================================================

// IncomeStreamDTO is one declared income source.
type IncomeStreamDTO struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Frequency   string  `json:"frequency"`
	HoursWorked float64 `json:"hours_worked,omitempty"`
}

// MemberDTO is one person on a screen.
type MemberDTO struct {
	ID                 string            `json:"id"`
	Relationship       string            `json:"relationship"`
	BirthYear          int               `json:"birth_year,omitempty"`
	BirthMonth         int               `json:"birth_month,omitempty"`
	Age                int               `json:"age,omitempty"`
	Pregnant           bool              `json:"pregnant,omitempty"`
	Student            bool              `json:"student,omitempty"`
	Veteran            bool              `json:"veteran,omitempty"`
	Disabled           bool              `json:"disabled,omitempty"`
	VisuallyImpaired   bool              `json:"visually_impaired,omitempty"`
	LongTermDisability bool              `json:"long_term_disability,omitempty"`
	LegalStatus        string            `json:"legal_status,omitempty"`
	Insurance          []string          `json:"insurance,omitempty"`
	IncomeStreams      []IncomeStreamDTO `json:"income_streams,omitempty"`
}

// ExpenseDTO is one declared monthly expense.
type ExpenseDTO struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// ScreenDTO is a household screen in API responses.
type ScreenDTO struct {
	ID              string          `json:"id"`
	State           string          `json:"state"`
	County          string          `json:"county,omitempty"`
	ZipCode         string          `json:"zip_code,omitempty"`
	HouseholdAssets float64         `json:"household_assets,omitempty"`
	Benefits        map[string]bool `json:"benefits,omitempty"`
	Members         []MemberDTO     `json:"members"`
	Expenses        []ExpenseDTO    `json:"expenses,omitempty"`
	Frozen          bool            `json:"frozen"`
}

// CreateScreenRequest is the request to submit a screen. A missing ID gets
// a generated one.
type CreateScreenRequest struct {
	ID              string          `json:"id,omitempty"`
	State           string          `json:"state"`
	County          string          `json:"county,omitempty"`
	ZipCode         string          `json:"zip_code,omitempty"`
	HouseholdAssets float64         `json:"household_assets,omitempty"`
	Benefits        map[string]bool `json:"benefits,omitempty"`
	Members         []MemberDTO     `json:"members"`
	Expenses        []ExpenseDTO    `json:"expenses,omitempty"`
}

// ScreenSummaryDTO is one row of the screen listing.
type ScreenSummaryDTO struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Members   int    `json:"members"`
	Frozen    bool   `json:"frozen"`
	CreatedAt string `json:"created_at"`
}

// =============================================================================
// EVALUATION TYPES
// =============================================================================

// EvaluateRequest selects the programs to evaluate. Empty means every
// registered program.
type EvaluateRequest struct {
	Programs []string `json:"programs,omitempty"`
}

// ResultDTO is one program's outcome.
type ResultDTO struct {
	Program          string   `json:"program"`
	Eligible         bool     `json:"eligible"`
	Value            string   `json:"value"`
	Reason           string   `json:"reason,omitempty"`
	FailedConditions []string `json:"failed_conditions,omitempty"`
	EligibleMembers  []string `json:"eligible_members,omitempty"`
}

// EvaluationDTO is one recorded evaluation run.
type EvaluationDTO struct {
	SnapshotID  string      `json:"snapshot_id"`
	ScreenID    string      `json:"screen_id"`
	EvaluatedAt string      `json:"evaluated_at"`
	Results     []ResultDTO `json:"results"`
}

// ProgramDTO describes one registered program.
type ProgramDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	ValueFormat string `json:"value_format"`
}

// MismatchDTO is one fixture disagreement from a validation run.
type MismatchDTO struct {
	Fixture string `json:"fixture"`
	Program string `json:"program"`
	Field   string `json:"field"`
	Want    string `json:"want"`
	Got     string `json:"got"`
}

// ValidationDTO summarizes a validation run.
type ValidationDTO struct {
	Fixtures   int           `json:"fixtures"`
	Mismatches []MismatchDTO `json:"mismatches"`
	Passed     bool          `json:"passed"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toScreen(req CreateScreenRequest) *screener.Screen {
	id := screener.ScreenID(req.ID)
	if id == "" {
		id = screener.NewScreenID()
	}
	screen := &screener.Screen{
		ID:              id,
		State:           req.State,
		County:          req.County,
		ZipCode:         req.ZipCode,
		HouseholdAssets: decimal.NewFromFloat(req.HouseholdAssets),
		Benefits:        req.Benefits,
	}
	if screen.Benefits == nil {
		screen.Benefits = map[string]bool{}
	}
	for _, md := range req.Members {
		m := &screener.HouseholdMember{
			ID:                 screener.MemberID(md.ID),
			Relationship:       screener.Relationship(md.Relationship),
			BirthYear:          md.BirthYear,
			BirthMonth:         time.Month(md.BirthMonth),
			StoredAge:          md.Age,
			Pregnant:           md.Pregnant,
			Student:            md.Student,
			Veteran:            md.Veteran,
			Disabled:           md.Disabled,
			VisuallyImpaired:   md.VisuallyImpaired,
			LongTermDisability: md.LongTermDisability,
			LegalStatus:        md.LegalStatus,
		}
		for _, ins := range md.Insurance {
			m.Insurance = append(m.Insurance, screener.InsuranceType(ins))
		}
		for _, sd := range md.IncomeStreams {
			m.IncomeStreams = append(m.IncomeStreams, screener.IncomeStream{
				Type:        screener.IncomeType(sd.Type),
				Amount:      decimal.NewFromFloat(sd.Amount),
				Frequency:   screener.Frequency(sd.Frequency),
				HoursWorked: decimal.NewFromFloat(sd.HoursWorked),
			})
		}
		screen.Members = append(screen.Members, m)
	}
	for _, ed := range req.Expenses {
		screen.Expenses = append(screen.Expenses, screener.Expense{
			Type:   screener.ExpenseType(ed.Type),
			Amount: decimal.NewFromFloat(ed.Amount),
		})
	}
	return screen
}

func fromScreen(screen *screener.Screen) ScreenDTO {
	dto := ScreenDTO{
		ID:       string(screen.ID),
		State:    screen.State,
		County:   screen.County,
		ZipCode:  screen.ZipCode,
		Benefits: screen.Benefits,
		Frozen:   screen.Frozen,
	}
	dto.HouseholdAssets, _ = screen.HouseholdAssets.Float64()
	for _, m := range screen.Members {
		md := MemberDTO{
			ID:                 string(m.ID),
			Relationship:       string(m.Relationship),
			BirthYear:          m.BirthYear,
			BirthMonth:         int(m.BirthMonth),
			Age:                m.StoredAge,
			Pregnant:           m.Pregnant,
			Student:            m.Student,
			Veteran:            m.Veteran,
			Disabled:           m.Disabled,
			VisuallyImpaired:   m.VisuallyImpaired,
			LongTermDisability: m.LongTermDisability,
			LegalStatus:        m.LegalStatus,
		}
		for _, ins := range m.Insurance {
			md.Insurance = append(md.Insurance, string(ins))
		}
		for _, stream := range m.IncomeStreams {
			sd := IncomeStreamDTO{
				Type:      string(stream.Type),
				Frequency: string(stream.Frequency),
			}
			sd.Amount, _ = stream.Amount.Float64()
			sd.HoursWorked, _ = stream.HoursWorked.Float64()
			md.IncomeStreams = append(md.IncomeStreams, sd)
		}
		dto.Members = append(dto.Members, md)
	}
	for _, e := range screen.Expenses {
		ed := ExpenseDTO{Type: string(e.Type)}
		ed.Amount, _ = e.Amount.Float64()
		dto.Expenses = append(dto.Expenses, ed)
	}
	return dto
}

func fromResults(results []engine.Result) []ResultDTO {
	dtos := make([]ResultDTO, len(results))
	for i, r := range results {
		dto := ResultDTO{
			Program:          string(r.Program),
			Eligible:         r.Eligible,
			Value:            r.Value.StringFixed(2),
			Reason:           string(r.Reason),
			FailedConditions: r.FailedConditions,
		}
		for _, id := range r.EligibleMembers {
			dto.EligibleMembers = append(dto.EligibleMembers, string(id))
		}
		dtos[i] = dto
	}
	return dtos
}

func fromSnapshot(snap sqlite.EligibilitySnapshot) EvaluationDTO {
	return EvaluationDTO{
		SnapshotID:  snap.ID,
		ScreenID:    string(snap.ScreenID),
		EvaluatedAt: snap.EvaluatedAt.Format(time.RFC3339),
		Results:     fromResults(snap.Results),
	}
}

func fromMismatches(found []validate.Mismatch) []MismatchDTO {
	dtos := make([]MismatchDTO, len(found))
	for i, m := range found {
		dtos[i] = MismatchDTO{
			Fixture: m.Fixture,
			Program: string(m.Program),
			Field:   m.Field,
			Want:    m.Want,
			Got:     m.Got,
		}
	}
	return dtos
}

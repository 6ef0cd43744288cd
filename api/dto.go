/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Application:
    ApplicationDTO, ApplicationDetailDTO, CreateApplicationRequest

  Alteration:
    AlterationDTO, CreateAlterationRequest, ActorRequest

  Handling session:
    SessionDTO, EditSessionRequest, CalculationResultDTO, CalculateResponse

  Stateless:
    CalculateRequest, DisabledDatesResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

FORMATS:
  Dates are ISO (2006-01-02). Money is a decimal string with two decimals
  ("1234.50") so clients never see float rounding.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/calculation.go: CalculationTableJSON type
*/
package api

import (
	"time"

	"github.com/citybenefits/recovery-engine/factory"
	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ApplicationDTO represents an accepted benefit application.
type ApplicationDTO struct {
	ID                string `json:"id"`
	ApplicationNumber int    `json:"application_number"`
	CompanyName       string `json:"company_name"`
	EmployeeName      string `json:"employee_name,omitempty"`
	BenefitStart      string `json:"benefit_start"`
	BenefitEnd        string `json:"benefit_end"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// ApplicationDetailDTO adds the calculation table and alterations.
type ApplicationDetailDTO struct {
	ApplicationDTO
	Calculation factory.CalculationTableJSON `json:"calculation"`
	Alterations []AlterationDTO              `json:"alterations"`
}

// CreateApplicationRequest is the request to register an application.
type CreateApplicationRequest struct {
	ID                string                        `json:"id,omitempty"`
	ApplicationNumber int                           `json:"application_number"`
	CompanyName       string                        `json:"company_name"`
	EmployeeName      string                        `json:"employee_name"`
	BenefitStart      string                        `json:"benefit_start"`
	BenefitEnd        string                        `json:"benefit_end"`
	Calculation       *factory.CalculationTableJSON `json:"calculation,omitempty"`
}

// AlterationDTO represents an alteration and its recovery outcome.
type AlterationDTO struct {
	ID                    string  `json:"id"`
	ApplicationID         string  `json:"application_id"`
	Type                  string  `json:"type"`
	State                 string  `json:"state"`
	EndDate               string  `json:"end_date"`
	ResumeDate            *string `json:"resume_date,omitempty"`
	Reason                string  `json:"reason,omitempty"`
	RecoveryStartDate     *string `json:"recovery_start_date,omitempty"`
	RecoveryEndDate       *string `json:"recovery_end_date,omitempty"`
	RecoveryAmount        string  `json:"recovery_amount"`
	RecoveryJustification string  `json:"recovery_justification,omitempty"`
	IsManualAmount        bool    `json:"is_manual_amount"`
	HandledAt             *string `json:"handled_at,omitempty"`
	HandledBy             string  `json:"handled_by,omitempty"`
	CreatedAt             string  `json:"created_at,omitempty"`
}

// CreateAlterationRequest reports a termination or suspension.
type CreateAlterationRequest struct {
	Type       string  `json:"type"`
	EndDate    string  `json:"end_date"`
	ResumeDate *string `json:"resume_date,omitempty"`
	Reason     string  `json:"reason"`
}

// ActorRequest names who submits or cancels.
type ActorRequest struct {
	ActorID string `json:"actor_id"`
}

// SessionDTO is the form state of a handling session.
type SessionDTO struct {
	ID                    string                `json:"id"`
	AlterationID          string                `json:"alteration_id"`
	ApplicationID         string                `json:"application_id"`
	RecoveryStartDate     string                `json:"recovery_start_date"`
	RecoveryEndDate       string                `json:"recovery_end_date"`
	IsManual              bool                  `json:"is_manual"`
	ManualRecoveryAmount  string                `json:"manual_recovery_amount"`
	RecoveryAmount        string                `json:"recovery_amount"`
	RecoveryJustification string                `json:"recovery_justification"`
	State                 string                `json:"state"`
	CanSubmit             bool                  `json:"can_submit"`
	Result                *CalculationResultDTO `json:"result,omitempty"`
	OpenedAt              string                `json:"opened_at"`
	LastActivity          string                `json:"last_activity"`
}

// EditSessionRequest changes one form field.
type EditSessionRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ConflictDTO names the handled alteration a range overlaps.
type ConflictDTO struct {
	AlterationID string `json:"alteration_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// CalculationResultDTO is the outcome of one calculation run.
type CalculationResultDTO struct {
	Total       string       `json:"total"`
	Description string       `json:"description"`
	Months      int          `json:"months"`
	RangeValid  bool         `json:"range_valid"`
	Conflict    *ConflictDTO `json:"conflict,omitempty"`
}

// CalculateResponse pairs a calculation with the session it updated.
type CalculateResponse struct {
	Session SessionDTO           `json:"session"`
	Result  CalculationResultDTO `json:"result"`
}

// CalculateRequest runs the calculator without a session. Rows default to
// the application's stored table; alterations come from the application.
type CalculateRequest struct {
	ApplicationID        string                        `json:"application_id,omitempty"`
	ExcludeAlterationID  string                        `json:"exclude_alteration_id,omitempty"`
	RecoveryStartDate    string                        `json:"recovery_start_date"`
	RecoveryEndDate      string                        `json:"recovery_end_date"`
	IsManual             bool                          `json:"is_manual"`
	ManualRecoveryAmount string                        `json:"manual_recovery_amount,omitempty"`
	Calculation          *factory.CalculationTableJSON `json:"calculation,omitempty"`
}

// DisabledDatesResponse lists days a date picker should grey out.
type DisabledDatesResponse struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Dates []string `json:"dates"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toApplicationDTO(app generic.Application) ApplicationDTO {
	dto := ApplicationDTO{
		ID:                string(app.ID),
		ApplicationNumber: app.ApplicationNumber,
		CompanyName:       app.CompanyName,
		EmployeeName:      app.EmployeeName,
		BenefitStart:      app.BenefitStart.String(),
		BenefitEnd:        app.BenefitEnd.String(),
	}
	if !app.CreatedAt.IsZero() {
		dto.CreatedAt = app.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toAlterationDTO(alt generic.Alteration) AlterationDTO {
	dto := AlterationDTO{
		ID:                    string(alt.ID),
		ApplicationID:         string(alt.ApplicationID),
		Type:                  string(alt.Type),
		State:                 string(alt.State),
		EndDate:               alt.EndDate.String(),
		ResumeDate:            datePtrString(alt.ResumeDate),
		Reason:                alt.Reason,
		RecoveryStartDate:     datePtrString(alt.RecoveryStartDate),
		RecoveryEndDate:       datePtrString(alt.RecoveryEndDate),
		RecoveryAmount:        alt.RecoveryAmount.String(),
		RecoveryJustification: alt.RecoveryJustification,
		IsManualAmount:        alt.IsManualAmount,
		HandledBy:             alt.HandledBy,
	}
	if alt.HandledAt != nil {
		s := alt.HandledAt.Format(time.RFC3339)
		dto.HandledAt = &s
	}
	if !alt.CreatedAt.IsZero() {
		dto.CreatedAt = alt.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toAlterationDTOs(alts []generic.Alteration) []AlterationDTO {
	dtos := make([]AlterationDTO, len(alts))
	for i, alt := range alts {
		dtos[i] = toAlterationDTO(alt)
	}
	return dtos
}

func toSessionDTO(s recovery.Session) SessionDTO {
	dto := SessionDTO{
		ID:                    string(s.ID),
		AlterationID:          string(s.AlterationID),
		ApplicationID:         string(s.ApplicationID),
		RecoveryStartDate:     s.Range.RecoveryStartDate,
		RecoveryEndDate:       s.Range.RecoveryEndDate,
		IsManual:              s.Range.IsManual,
		ManualRecoveryAmount:  s.Range.ManualRecoveryAmount,
		RecoveryAmount:        s.Range.RecoveryAmount,
		RecoveryJustification: s.Range.RecoveryJustification,
		State:                 string(s.State),
		CanSubmit:             s.CheckSubmittable() == nil,
		OpenedAt:              s.OpenedAt.Format(time.RFC3339),
		LastActivity:          s.LastActivity.Format(time.RFC3339),
	}
	if s.Result != nil {
		res := toCalculationResultDTO(*s.Result)
		dto.Result = &res
	}
	return dto
}

func toCalculationResultDTO(res recovery.CalculationResult) CalculationResultDTO {
	dto := CalculationResultDTO{
		Total:       res.Total.String(),
		Description: res.Description,
		Months:      res.Months,
		RangeValid:  res.RangeValid,
	}
	if res.Conflict != nil {
		dto.Conflict = &ConflictDTO{
			AlterationID: string(res.Conflict.AlterationID),
			StartDate:    res.Conflict.Occupied.Start.String(),
			EndDate:      res.Conflict.Occupied.End.String(),
		}
	}
	return dto
}

func datePtrString(tp *generic.TimePoint) *string {
	if tp == nil {
		return nil
	}
	s := tp.String()
	return &s
}

/*
handlers.go - HTTP API handlers for the recovery engine

PURPOSE:
  Exposes alteration handling via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the recovery package.

ENDPOINTS:
  Applications:
    GET    /api/applications                       List applications
    POST   /api/applications                       Register application (+ calculation table)
    GET    /api/applications/{id}                  Application, calculation table, alterations
    PUT    /api/applications/{id}/calculation      Replace calculation table
    GET    /api/applications/{id}/alterations      List alterations
    POST   /api/applications/{id}/alterations      Report termination/suspension
    GET    /api/applications/{id}/disabled-dates   Days occupied by handled ranges

  Handling:
    POST   /api/alterations/{id}/sessions          Open handling session
    POST   /api/alterations/{id}/cancel            Cancel alteration
    GET    /api/sessions/{id}                      Current form state
    PATCH  /api/sessions/{id}                      Edit one field
    POST   /api/sessions/{id}/calculate            Recalculate recovery amount
    POST   /api/sessions/{id}/submit               Mark alteration handled
    DELETE /api/sessions/{id}                      Discard session

  Stateless:
    POST   /api/calculate                          Calculate for arbitrary input

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Service: Handling sessions and the alteration lifecycle
  - Calculations: Calculation table JSON to rows

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Application, alteration or session not found
  - 409: Range occupied, stale calculation, invalid state transition
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Handler identity is taken from the
  request body as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citybenefits/recovery-engine/factory"
	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        generic.TxStore
	Service      *recovery.HandlingService
	Calculations *factory.CalculationFactory
	Log          zerolog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *recovery.HandlingService, log zerolog.Logger) *Handler {
	return &Handler{
		Store:        svc.Store,
		Service:      svc,
		Calculations: factory.NewCalculationFactory(),
		Log:          log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// APPLICATION HANDLERS
// =============================================================================

// ListApplications returns all applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Store.ListApplications(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list applications", err)
		return
	}

	dtos := make([]ApplicationDTO, len(apps))
	for i, app := range apps {
		dtos[i] = toApplicationDTO(app)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateApplication registers an application, optionally with its table.
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "company_name is required", nil)
		return
	}
	if req.ApplicationNumber <= 0 {
		writeError(w, http.StatusBadRequest, "application_number must be a positive integer", nil)
		return
	}

	start, err := generic.ParseDate(req.BenefitStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid benefit_start", err)
		return
	}
	end, err := generic.ParseDate(req.BenefitEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid benefit_end", err)
		return
	}
	if _, err := generic.NewPeriod(start, end); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid benefit period", err)
		return
	}

	var rows []generic.CalculationRow
	if req.Calculation != nil {
		rows, err = h.Calculations.FromJSON(*req.Calculation)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid calculation table", err)
			return
		}
	}

	app := generic.Application{
		ID:                generic.ApplicationID(req.ID),
		ApplicationNumber: req.ApplicationNumber,
		CompanyName:       req.CompanyName,
		EmployeeName:      req.EmployeeName,
		BenefitStart:      start,
		BenefitEnd:        end,
		CreatedAt:         h.Service.Now(),
	}
	if app.ID == "" {
		app.ID = generic.ApplicationID(uuid.New().String())
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveApplication(ctx, app); err != nil {
			return err
		}
		if rows != nil {
			return tx.ReplaceCalculationRows(ctx, app.ID, rows)
		}
		return nil
	})
	if err != nil {
		h.writeServiceError(w, "Failed to create application", err)
		return
	}

	h.Log.Info().
		Str("application_id", string(app.ID)).
		Int("application_number", app.ApplicationNumber).
		Int("rows", len(rows)).
		Msg("Application registered")
	writeJSON(w, http.StatusCreated, toApplicationDTO(app))
}

// GetApplication returns an application with its table and alterations.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ApplicationID(chi.URLParam(r, "id"))

	app, err := h.Store.GetApplication(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to get application", err)
		return
	}
	rows, err := h.Store.CalculationRows(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to load calculation table", err)
		return
	}
	alts, err := h.Store.AlterationsByApplication(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to load alterations", err)
		return
	}

	writeJSON(w, http.StatusOK, ApplicationDetailDTO{
		ApplicationDTO: toApplicationDTO(*app),
		Calculation:    h.Calculations.ToJSON(rows),
		Alterations:    toAlterationDTOs(alts),
	})
}

// ReplaceCalculation swaps the calculation table of an application.
// PUT /api/applications/{id}/calculation
func (h *Handler) ReplaceCalculation(w http.ResponseWriter, r *http.Request) {
	id := generic.ApplicationID(chi.URLParam(r, "id"))

	var table factory.CalculationTableJSON
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rows, err := h.Calculations.FromJSON(table)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calculation table", err)
		return
	}

	if err := h.Service.ReplaceCalculation(r.Context(), id, rows); err != nil {
		h.writeServiceError(w, "Failed to replace calculation table", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Calculations.ToJSON(rows))
}

// =============================================================================
// ALTERATION HANDLERS
// =============================================================================

// ListAlterations returns every alteration of an application.
func (h *Handler) ListAlterations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ApplicationID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetApplication(ctx, id); err != nil {
		h.writeServiceError(w, "Failed to get application", err)
		return
	}
	alts, err := h.Store.AlterationsByApplication(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to list alterations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlterationDTOs(alts))
}

// CreateAlteration reports a termination or suspension.
func (h *Handler) CreateAlteration(w http.ResponseWriter, r *http.Request) {
	id := generic.ApplicationID(chi.URLParam(r, "id"))

	var req CreateAlterationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	endDate, err := generic.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	in := recovery.NewAlteration{
		Type:    generic.AlterationType(req.Type),
		EndDate: endDate,
		Reason:  req.Reason,
	}
	if req.ResumeDate != nil && *req.ResumeDate != "" {
		resume, err := generic.ParseDate(*req.ResumeDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid resume_date", err)
			return
		}
		in.ResumeDate = &resume
	}

	alt, err := h.Service.CreateAlteration(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, "Failed to create alteration", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAlterationDTO(*alt))
}

// GetDisabledDates lists days inside [from, to] already covered by a handled
// recovery range. Defaults to the benefit period; alteration_id excludes the
// alteration being edited.
// GET /api/applications/{id}/disabled-dates?from=&to=&alteration_id=
func (h *Handler) GetDisabledDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ApplicationID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	app, err := h.Store.GetApplication(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to get application", err)
		return
	}

	window := app.BenefitPeriod()
	if from := q.Get("from"); from != "" {
		if window.Start, err = generic.ParseDate(from); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}
	if to := q.Get("to"); to != "" {
		if window.End, err = generic.ParseDate(to); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}
	if err := window.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date window", err)
		return
	}
	if window.End.After(window.Start.AddDays(maxDisabledDatesWindow - 1)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Date window exceeds %d days", maxDisabledDatesWindow), nil)
		return
	}

	alts, err := h.Store.AlterationsByApplication(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to load alterations", err)
		return
	}

	days := recovery.DisabledDays(window, alts, generic.AlterationID(q.Get("alteration_id")))
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.String()
	}
	writeJSON(w, http.StatusOK, DisabledDatesResponse{
		From:  window.Start.String(),
		To:    window.End.String(),
		Dates: dates,
	})
}

// maxDisabledDatesWindow caps the per-day scan at roughly three years.
const maxDisabledDatesWindow = 3 * 366

// CancelAlteration cancels an alteration, freeing any range it occupied.
// POST /api/alterations/{id}/cancel
func (h *Handler) CancelAlteration(w http.ResponseWriter, r *http.Request) {
	id := generic.AlterationID(chi.URLParam(r, "id"))

	var req ActorRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	alt, err := h.Service.Cancel(r.Context(), id, req.ActorID)
	if err != nil {
		h.writeServiceError(w, "Failed to cancel alteration", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlterationDTO(*alt))
}

// =============================================================================
// HANDLING SESSION HANDLERS
// =============================================================================

// OpenSession starts handling an alteration.
// POST /api/alterations/{id}/sessions
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id := generic.AlterationID(chi.URLParam(r, "id"))

	s, err := h.Service.OpenSession(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to open handling session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

// GetSession returns the current form state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Sessions.Get(generic.SessionID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to get handling session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// EditSession applies one field edit. Any edit affecting the calculation
// makes the session stale.
// PATCH /api/sessions/{id}
func (h *Handler) EditSession(w http.ResponseWriter, r *http.Request) {
	var req EditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Service.Edit(generic.SessionID(chi.URLParam(r, "id")), recovery.Field(req.Field), req.Value)
	if err != nil {
		h.writeServiceError(w, "Failed to edit handling session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// CalculateSession recalculates the recovery amount of a session.
// POST /api/sessions/{id}/calculate
func (h *Handler) CalculateSession(w http.ResponseWriter, r *http.Request) {
	s, res, err := h.Service.Calculate(r.Context(), generic.SessionID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to calculate recovery amount", err)
		return
	}
	writeJSON(w, http.StatusOK, CalculateResponse{
		Session: toSessionDTO(s),
		Result:  toCalculationResultDTO(res),
	})
}

// SubmitSession marks the alteration handled. Refused with 409 while the
// calculation is stale or the range is occupied.
// POST /api/sessions/{id}/submit
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	alt, err := h.Service.Submit(r.Context(), generic.SessionID(chi.URLParam(r, "id")), req.ActorID)
	if err != nil {
		h.writeServiceError(w, "Failed to submit handling", err)
		return
	}
	writeJSON(w, http.StatusOK, toAlterationDTO(*alt))
}

// DiscardSession closes a session without saving.
func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if !h.Service.Sessions.Discard(generic.SessionID(chi.URLParam(r, "id"))) {
		writeError(w, http.StatusNotFound, "Handling session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STATELESS CALCULATION
// =============================================================================

// Calculate runs the calculator for arbitrary input without a session.
// POST /api/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ApplicationID == "" && req.Calculation == nil {
		writeError(w, http.StatusBadRequest, "application_id or calculation is required", nil)
		return
	}

	var (
		rows []generic.CalculationRow
		alts []generic.Alteration
		err  error
	)
	if req.Calculation != nil {
		if rows, err = h.Calculations.FromJSON(*req.Calculation); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid calculation table", err)
			return
		}
	}
	if req.ApplicationID != "" {
		appID := generic.ApplicationID(req.ApplicationID)
		if _, err := h.Store.GetApplication(ctx, appID); err != nil {
			h.writeServiceError(w, "Failed to get application", err)
			return
		}
		if req.Calculation == nil {
			if rows, err = h.Store.CalculationRows(ctx, appID); err != nil {
				h.writeServiceError(w, "Failed to load calculation table", err)
				return
			}
		}
		if alts, err = h.Store.AlterationsByApplication(ctx, appID); err != nil {
			h.writeServiceError(w, "Failed to load alterations", err)
			return
		}
	}

	in := recovery.ProposedRecoveryRange{
		RecoveryStartDate:    req.RecoveryStartDate,
		RecoveryEndDate:      req.RecoveryEndDate,
		IsManual:             req.IsManual,
		ManualRecoveryAmount: req.ManualRecoveryAmount,
	}
	res, err := recovery.CalculateRecoveryAmountExcept(in, rows, alts, generic.AlterationID(req.ExcludeAlterationID))
	if err != nil {
		h.writeServiceError(w, "Failed to calculate recovery amount", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationResultDTO(res))
}

// pinger is implemented by stores backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness, database reachability and the number of open
// handling sessions.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.Log.Error().Err(err).Msg("Database ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.Service.Sessions.Len(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeServiceError maps domain errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg(message)
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}
	var conflict *generic.OccupiedRangeError
	if errors.As(err, &conflict) {
		resp.Details = map[string]string{
			"message":       err.Error(),
			"alteration_id": string(conflict.AlterationID),
			"start_date":    conflict.Occupied.Start.String(),
			"end_date":      conflict.Occupied.End.String(),
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

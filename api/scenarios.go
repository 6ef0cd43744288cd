/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	applications, calculation tables and alterations for demos.

AVAILABLE SCENARIOS:

	single-termination: One application, one received termination
	occupied-range:     A handled suspension already occupies part of the
	                    benefit period; a second alteration waits
	manual-recovery:    A handled alteration with a manually set amount and a
	                    table whose rows change monthly amount mid-period

HOW SCENARIOS WORK:
 1. Reset database (clear all data) and open handling sessions
 2. Create the application
 3. Parse and store its calculation table via the factory
 4. Add alterations (historical ones directly in their final state)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "occupied-range"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - factory/calculation.go: Calculation table JSON
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-termination",
		Name:        "Single Termination",
		Description: "Employment ended mid-benefit; nothing recovered yet",
	},
	{
		ID:          "occupied-range",
		Name:        "Occupied Range",
		Description: "A handled suspension blocks part of the benefit period for the next alteration",
	},
	{
		ID:          "manual-recovery",
		Name:        "Manual Recovery",
		Description: "Handled alteration with a manually agreed amount; rows with different monthly amounts",
	},
}

// resetter is implemented by stores that can be wiped for demos.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(ctx context.Context) error
	switch req.ScenarioID {
	case "single-termination":
		load = h.loadSingleTerminationScenario
	case "occupied-range":
		load = h.loadOccupiedRangeScenario
	case "manual-recovery":
		load = h.loadManualRecoveryScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.Info().Str("scenario", req.ScenarioID).Msg("Scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data and open sessions.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return fmt.Errorf("store %T cannot be reset", h.Store)
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	h.Service.Sessions.Clear()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// Two quarters of 2024 at 800 EUR/month.
const halfYearTable = `{
	"rows": [
		{"row_type": "salary_cost_eur", "amount": "3200.00", "description": "Palkkakustannukset"},
		{"row_type": "helsinki_benefit_sub_total_eur", "start_date": "2024-01-01", "end_date": "2024-03-31", "amount": "2400.00", "duration_in_months": 3, "description": "Helsinki-lisä 1.1.2024 - 31.3.2024"},
		{"row_type": "helsinki_benefit_sub_total_eur", "start_date": "2024-04-01", "end_date": "2024-06-30", "amount": "2400.00", "duration_in_months": 3, "description": "Helsinki-lisä 1.4.2024 - 30.6.2024"},
		{"row_type": "helsinki_benefit_total_eur", "amount": "4800.00"}
	]
}`

// Monthly amount drops from 800 to 500 after the first four months.
const steppedTable = `{
	"rows": [
		{"row_type": "helsinki_benefit_sub_total_eur", "start_date": "2024-02-01", "end_date": "2024-05-31", "amount": "3200.00", "description": "Helsinki-lisä 1.2.2024 - 31.5.2024"},
		{"row_type": "helsinki_benefit_sub_total_eur", "start_date": "2024-06-01", "end_date": "2024-12-31", "amount": "3500.00", "description": "Helsinki-lisä 1.6.2024 - 31.12.2024"},
		{"row_type": "helsinki_benefit_total_eur", "amount": "6700.00"}
	]
}`

func (h *Handler) loadSingleTerminationScenario(ctx context.Context) error {
	app := generic.Application{
		ID:                "app-1001",
		ApplicationNumber: 1001,
		CompanyName:       "Kahvila Kaneli Oy",
		EmployeeName:      "Aino Virtanen",
		BenefitStart:      generic.NewTimePoint(2024, time.January, 1),
		BenefitEnd:        generic.NewTimePoint(2024, time.June, 30),
	}
	if err := h.seedApplication(ctx, app, halfYearTable); err != nil {
		return err
	}

	return h.Store.SaveAlteration(ctx, generic.Alteration{
		ID:             "alt-1001-1",
		ApplicationID:  app.ID,
		Type:           generic.AlterationTermination,
		State:          generic.AlterationReceived,
		EndDate:        generic.NewTimePoint(2024, time.April, 15),
		Reason:         "Työsuhde päättyi koeajalla",
		RecoveryAmount: generic.ZeroMoney(),
		CreatedAt:      time.Date(2024, time.April, 16, 9, 0, 0, 0, time.UTC),
	})
}

func (h *Handler) loadOccupiedRangeScenario(ctx context.Context) error {
	app := generic.Application{
		ID:                "app-1002",
		ApplicationNumber: 1002,
		CompanyName:       "Rakennus Lahtinen Ky",
		EmployeeName:      "Mikko Korhonen",
		BenefitStart:      generic.NewTimePoint(2024, time.January, 1),
		BenefitEnd:        generic.NewTimePoint(2024, time.June, 30),
	}
	if err := h.seedApplication(ctx, app, halfYearTable); err != nil {
		return err
	}

	start := generic.NewTimePoint(2024, time.February, 1)
	end := generic.NewTimePoint(2024, time.March, 31)
	resume := generic.NewTimePoint(2024, time.April, 1)
	handledAt := time.Date(2024, time.April, 5, 13, 30, 0, 0, time.UTC)
	if err := h.Store.SaveAlteration(ctx, generic.Alteration{
		ID:                    "alt-1002-1",
		ApplicationID:         app.ID,
		Type:                  generic.AlterationSuspension,
		State:                 generic.AlterationHandled,
		EndDate:               generic.NewTimePoint(2024, time.January, 31),
		ResumeDate:            &resume,
		Reason:                "Opintovapaa",
		RecoveryStartDate:     &start,
		RecoveryEndDate:       &end,
		RecoveryAmount:        generic.MustParseMoney("1600.00"),
		RecoveryJustification: "Kaksi kuukautta ilman palkanmaksua",
		HandledAt:             &handledAt,
		HandledBy:             "handler-demo",
		CreatedAt:             time.Date(2024, time.February, 2, 8, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}

	return h.Store.SaveAlteration(ctx, generic.Alteration{
		ID:             "alt-1002-2",
		ApplicationID:  app.ID,
		Type:           generic.AlterationTermination,
		State:          generic.AlterationReceived,
		EndDate:        generic.NewTimePoint(2024, time.May, 31),
		Reason:         "Tuotannollinen syy",
		RecoveryAmount: generic.ZeroMoney(),
		CreatedAt:      time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC),
	})
}

func (h *Handler) loadManualRecoveryScenario(ctx context.Context) error {
	app := generic.Application{
		ID:                "app-1003",
		ApplicationNumber: 1003,
		CompanyName:       "Siivouspalvelu Puhdas Oy",
		EmployeeName:      "Laura Nieminen",
		BenefitStart:      generic.NewTimePoint(2024, time.February, 1),
		BenefitEnd:        generic.NewTimePoint(2024, time.December, 31),
	}
	if err := h.seedApplication(ctx, app, steppedTable); err != nil {
		return err
	}

	start := generic.NewTimePoint(2024, time.March, 1)
	end := generic.NewTimePoint(2024, time.March, 31)
	handledAt := time.Date(2024, time.April, 10, 11, 0, 0, 0, time.UTC)
	if err := h.Store.SaveAlteration(ctx, generic.Alteration{
		ID:                    "alt-1003-1",
		ApplicationID:         app.ID,
		Type:                  generic.AlterationSuspension,
		State:                 generic.AlterationHandled,
		EndDate:               generic.NewTimePoint(2024, time.March, 1),
		Reason:                "Sairausloma",
		RecoveryStartDate:     &start,
		RecoveryEndDate:       &end,
		RecoveryAmount:        generic.MustParseMoney("400.00"),
		RecoveryJustification: "Osa kuukaudesta palkallista, sovittu työnantajan kanssa",
		IsManualAmount:        true,
		HandledAt:             &handledAt,
		HandledBy:             "handler-demo",
		CreatedAt:             time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}

	return h.Store.SaveAlteration(ctx, generic.Alteration{
		ID:             "alt-1003-2",
		ApplicationID:  app.ID,
		Type:           generic.AlterationTermination,
		State:          generic.AlterationReceived,
		EndDate:        generic.NewTimePoint(2024, time.May, 15),
		Reason:         "Irtisanoutuminen",
		RecoveryAmount: generic.ZeroMoney(),
		CreatedAt:      time.Date(2024, time.May, 16, 9, 0, 0, 0, time.UTC),
	})
}

func (h *Handler) seedApplication(ctx context.Context, app generic.Application, table string) error {
	rows, err := h.Calculations.ParseCalculationTable([]byte(table))
	if err != nil {
		return fmt.Errorf("scenario table for %s: %w", app.ID, err)
	}
	app.CreatedAt = time.Date(app.BenefitStart.Year(), app.BenefitStart.Month(), 1, 8, 0, 0, 0, time.UTC)
	if err := h.Store.SaveApplication(ctx, app); err != nil {
		return err
	}
	return h.Store.ReplaceCalculationRows(ctx, app.ID, rows)
}

/*
Package factory converts upstream calculation tables into calculation rows.

PURPOSE:
  The benefit calculation itself is computed upstream. It arrives as a JSON
  table whose rows carry a billing sub-period, an amount and the number of
  months the amount covers. The factory validates that table and turns it
  into generic.CalculationRow values the recovery calculator consumes.

JSON SCHEMA:
  {
    "rows": [
      {
        "row_type": "helsinki_benefit_sub_total_eur",
        "start_date": "2024-01-01",
        "end_date": "2024-03-31",
        "amount": "2400.00",
        "duration_in_months": 3,
        "description": "Palkkatuki 1.1.2024 - 31.3.2024"
      }
    ]
  }

ROW TYPES:
  Only sub-total rows describe money paid for a sub-period. Totals, salary
  cost lines and other informative rows are dropped. Rows without a
  row_type are treated as sub-totals.

DEFAULTS:
  A sub-total row with both dates but no duration gets the number of
  calendar months its dates span.

USAGE:
  f := factory.NewCalculationFactory()
  rows, err := f.ParseCalculationTable(body)

SEE ALSO:
  - generic/alteration.go: CalculationRow
  - recovery/calculator.go: Consumes the rows
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Row types that carry a prorateable amount.
const (
	RowTypeSubTotal = "helsinki_benefit_sub_total_eur"
	RowTypeTotal    = "helsinki_benefit_total_eur"
)

// CalculationTableJSON is the JSON representation of a calculation table.
type CalculationTableJSON struct {
	Rows []CalculationRowJSON `json:"rows"`
}

// CalculationRowJSON represents one row. Amount accepts a JSON number or a
// decimal string.
type CalculationRowJSON struct {
	RowType     string          `json:"row_type,omitempty"`
	StartDate   string          `json:"start_date,omitempty"`
	EndDate     string          `json:"end_date,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Duration    int             `json:"duration_in_months,omitempty"`
	Description string          `json:"description,omitempty"`
}

// =============================================================================
// CALCULATION FACTORY
// =============================================================================

// CalculationFactory converts JSON calculation tables to rows.
type CalculationFactory struct{}

// NewCalculationFactory creates a new calculation factory.
func NewCalculationFactory() *CalculationFactory {
	return &CalculationFactory{}
}

// ParseCalculationTable parses a JSON document into calculation rows.
func (f *CalculationFactory) ParseCalculationTable(data []byte) ([]generic.CalculationRow, error) {
	var tj CalculationTableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("failed to parse calculation table JSON: %w", err)
	}
	return f.FromJSON(tj)
}

// FromJSON converts a table to rows, keeping only sub-total rows.
func (f *CalculationFactory) FromJSON(tj CalculationTableJSON) ([]generic.CalculationRow, error) {
	rows := make([]generic.CalculationRow, 0, len(tj.Rows))
	for i, rj := range tj.Rows {
		if !isSubTotal(rj.RowType) {
			continue
		}
		row, err := parseRow(rj)
		if err != nil {
			return nil, &generic.RowError{Index: i, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isSubTotal(rowType string) bool {
	return rowType == "" || rowType == RowTypeSubTotal
}

func parseRow(rj CalculationRowJSON) (generic.CalculationRow, error) {
	if rj.Amount.IsNegative() {
		return generic.CalculationRow{}, fmt.Errorf("%w: negative amount %s", generic.ErrInvalidAmount, rj.Amount)
	}
	if rj.Duration < 0 {
		return generic.CalculationRow{}, fmt.Errorf("%w: %d", generic.ErrInvalidRowDuration, rj.Duration)
	}

	row := generic.CalculationRow{
		Amount:      generic.NewMoney(rj.Amount),
		Duration:    rj.Duration,
		Description: rj.Description,
	}

	// Dates are optional; the calculator skips rows without them.
	if rj.StartDate != "" {
		start, err := generic.ParseDate(rj.StartDate)
		if err != nil {
			return generic.CalculationRow{}, fmt.Errorf("start_date: %w", err)
		}
		row.StartDate = &start
	}
	if rj.EndDate != "" {
		end, err := generic.ParseDate(rj.EndDate)
		if err != nil {
			return generic.CalculationRow{}, fmt.Errorf("end_date: %w", err)
		}
		row.EndDate = &end
	}

	if p, ok := row.Period(); ok {
		if err := p.Validate(); err != nil {
			return generic.CalculationRow{}, err
		}
		if row.Duration == 0 {
			row.Duration = p.Months()
		}
	}
	return row, nil
}

// ToJSON converts rows back to the table form.
func (f *CalculationFactory) ToJSON(rows []generic.CalculationRow) CalculationTableJSON {
	tj := CalculationTableJSON{Rows: make([]CalculationRowJSON, 0, len(rows))}
	for _, r := range rows {
		rj := CalculationRowJSON{
			RowType:     RowTypeSubTotal,
			Amount:      r.Amount.Value,
			Duration:    r.Duration,
			Description: r.Description,
		}
		if r.StartDate != nil {
			rj.StartDate = r.StartDate.String()
		}
		if r.EndDate != nil {
			rj.EndDate = r.EndDate.String()
		}
		tj.Rows = append(tj.Rows, rj)
	}
	return tj
}

package stock

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// Availability answers a direct quantity query.
type Availability struct {
	ItemName     string          `json:"item_name"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	Tracked      bool            `json:"tracked"`
	Known        bool            `json:"known"`
}

// IntakeLine is one received item.
type IntakeLine struct {
	Name string          `json:"name" validate:"required,max=160"`
	Qty  decimal.Decimal `json:"qty"`
	Rate decimal.Decimal `json:"rate"`
}

// IntakeRequest books stock received outside the vendor ledger.
type IntakeRequest struct {
	Items []IntakeLine `json:"items" validate:"required,min=1,dive"`
	Note  string       `json:"note" validate:"max=500"`
}

// Validate runs tag validation and the decimal checks tags cannot express.
func (r IntakeRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	for i, line := range r.Items {
		if !line.Qty.IsPositive() {
			verr.Add(fmt.Sprintf("items[%d].qty", i), "must be greater than 0")
		}
		if line.Rate.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].rate", i), "must be >= 0")
		}
	}
	return verr.OrNil()
}

// OpeningRow overwrites the balance of one item.
type OpeningRow struct {
	Name string          `json:"name" validate:"required,max=160"`
	Qty  decimal.Decimal `json:"qty"`
	Rate decimal.Decimal `json:"rate"`
}

// OpeningRequest is an opening-stock import.
type OpeningRequest struct {
	Rows []OpeningRow `json:"rows" validate:"required,min=1,dive"`
}

// Validate runs tag validation and the decimal checks tags cannot express.
func (r OpeningRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	for i, row := range r.Rows {
		if row.Qty.IsNegative() {
			verr.Add(fmt.Sprintf("rows[%d].qty", i), "must be >= 0")
		}
		if row.Rate.IsNegative() {
			verr.Add(fmt.Sprintf("rows[%d].rate", i), "must be >= 0")
		}
	}
	return verr.OrNil()
}

// OpeningResult summarises an import.
type OpeningResult struct {
	Entries []Entry `json:"entries"`
}

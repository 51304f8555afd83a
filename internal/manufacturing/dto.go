package manufacturing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// InputRequest is one material line. Rate is ignored for stock-backed inputs.
type InputRequest struct {
	Name      string          `json:"name" validate:"required,max=160"`
	QtyUsed   decimal.Decimal `json:"qty_used"`
	Rate      decimal.Decimal `json:"rate"`
	FromStock bool            `json:"from_stock"`
}

// CreateRequest is the payload of a production run.
type CreateRequest struct {
	ProductName string          `json:"product_name" validate:"required,max=160"`
	ProducedQty decimal.Decimal `json:"produced_qty"`
	Inputs      []InputRequest  `json:"inputs" validate:"required,min=1,dive"`
	Note        string          `json:"note" validate:"max=500"`
}

// Validate checks the request before any store access.
func (r CreateRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	if !r.ProducedQty.IsPositive() {
		verr.Add("produced_qty", "must be greater than 0")
	}
	for i, in := range r.Inputs {
		if !in.QtyUsed.IsPositive() {
			verr.Add(fmt.Sprintf("inputs[%d].qty_used", i), "must be greater than 0")
		}
		if !in.FromStock && in.Rate.IsNegative() {
			verr.Add(fmt.Sprintf("inputs[%d].rate", i), "must be >= 0")
		}
	}
	return verr.OrNil()
}

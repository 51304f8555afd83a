package vendors

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// CreateVendorRequest registers a vendor.
type CreateVendorRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	Mobile string `json:"mobile" validate:"required,numeric,min=7,max=15"`
	City   string `json:"city" validate:"max=80"`
}

// PurchaseLine is a received item as typed by the user.
type PurchaseLine struct {
	Name string          `json:"name" validate:"required,max=160"`
	Qty  decimal.Decimal `json:"qty"`
	Rate decimal.Decimal `json:"rate"`
}

// PurchaseRequest books stock bought from a vendor.
type PurchaseRequest struct {
	Items []PurchaseLine `json:"items" validate:"required,min=1,dive"`
	Note  string         `json:"note" validate:"max=500"`
}

// Validate checks the request before any store access.
func (r PurchaseRequest) Validate() error {
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

// PaymentRequest records money paid to a vendor.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   PaymentMode     `json:"mode" validate:"required,oneof=cash upi bank"`
	Note   string          `json:"note" validate:"max=500"`
}

// Validate checks the request before any store access.
func (r PaymentRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	if !r.Amount.IsPositive() {
		verr.Add("amount", "must be greater than 0")
	}
	return verr.OrNil()
}

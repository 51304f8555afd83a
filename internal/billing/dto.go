package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/shared"
)

// ItemInput is a bill line as typed by the user.
type ItemInput struct {
	Name string          `json:"name" validate:"required,max=160"`
	Qty  decimal.Decimal `json:"qty"`
	Rate decimal.Decimal `json:"rate"`
}

// Payment is the money part of a create or update request.
type Payment struct {
	Discount   decimal.Decimal `json:"discount"`
	CashAmount decimal.Decimal `json:"cash_amount"`
	UPIAmount  decimal.Decimal `json:"upi_amount"`
}

// CreateBillRequest is the payload of a new bill.
type CreateBillRequest struct {
	CustomerMobile string      `json:"customer_mobile" validate:"required,max=20"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
	Payment
}

// Validate checks the request before any store access.
func (r CreateBillRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	validateItems(verr, r.Items, false)
	validatePayment(verr, r.Payment)
	return verr.OrNil()
}

// UpdateBillRequest replaces a bill's items and payment wholesale and may patch
// the linked customer.
type UpdateBillRequest struct {
	Items    []ItemInput      `json:"items" validate:"required,min=1,dive"`
	Customer *customers.Patch `json:"customer"`
	Payment
}

// Validate checks the request before any store access. A line edited down to a
// zero quantity is kept and returns its stock.
func (r UpdateBillRequest) Validate() error {
	verr := shared.ValidateStruct(r)
	validateItems(verr, r.Items, true)
	validatePayment(verr, r.Payment)
	return verr.OrNil()
}

func validateItems(verr *shared.ValidationError, items []ItemInput, allowZero bool) {
	for i, item := range items {
		switch {
		case item.Qty.IsNegative():
			verr.Add(fmt.Sprintf("items[%d].qty", i), "must be >= 0")
		case item.Qty.IsZero() && !allowZero:
			verr.Add(fmt.Sprintf("items[%d].qty", i), "must be greater than 0")
		}
		if item.Rate.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].rate", i), "must be >= 0")
		}
	}
}

func validatePayment(verr *shared.ValidationError, p Payment) {
	if p.Discount.IsNegative() {
		verr.Add("discount", "must be >= 0")
	}
	if p.CashAmount.IsNegative() {
		verr.Add("cash_amount", "must be >= 0")
	}
	if p.UPIAmount.IsNegative() {
		verr.Add("upi_amount", "must be >= 0")
	}
}

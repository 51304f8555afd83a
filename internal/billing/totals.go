package billing

import (
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// Totals is the money summary of a bill.
type Totals struct {
	GrandTotal  decimal.Decimal
	Discount    decimal.Decimal
	FinalTotal  decimal.Decimal
	CashAmount  decimal.Decimal
	UPIAmount   decimal.Decimal
	DueAmount   decimal.Decimal
	PaymentMode PaymentMode
}

// LineTotal is qty x rate rounded to two places. It is computed once per line.
func LineTotal(qty, rate decimal.Decimal) decimal.Decimal {
	return qty.Mul(rate).Round(2)
}

// ComputeTotals sums stored line totals and splits payment. Whatever cash and UPI
// do not cover is due.
func ComputeTotals(items []Item, discount, cash, upi decimal.Decimal) (Totals, error) {
	grand := decimal.Zero
	for _, item := range items {
		grand = grand.Add(item.Total)
	}
	verr := &shared.ValidationError{}
	if discount.GreaterThan(grand) {
		verr.Add("discount", "must not exceed the grand total")
	}
	final := grand.Sub(discount)
	if cash.Add(upi).GreaterThan(final) {
		verr.Add("cash_amount", "cash and upi must not exceed the final total")
	}
	if err := verr.OrNil(); err != nil {
		return Totals{}, err
	}
	t := Totals{
		GrandTotal: grand,
		Discount:   discount,
		FinalTotal: final,
		CashAmount: cash,
		UPIAmount:  upi,
		DueAmount:  final.Sub(cash).Sub(upi),
	}
	t.PaymentMode = paymentMode(t)
	return t, nil
}

func paymentMode(t Totals) PaymentMode {
	switch {
	case t.DueAmount.IsPositive():
		return PaymentCredit
	case t.CashAmount.IsPositive() && t.UPIAmount.IsPositive():
		return PaymentSplit
	case t.UPIAmount.IsPositive():
		return PaymentUPI
	default:
		return PaymentCash
	}
}

func (b *Bill) applyTotals(t Totals) {
	b.GrandTotal = t.GrandTotal
	b.Discount = t.Discount
	b.FinalTotal = t.FinalTotal
	b.CashAmount = t.CashAmount
	b.UPIAmount = t.UPIAmount
	b.DueAmount = t.DueAmount
	b.PaymentMode = t.PaymentMode
}

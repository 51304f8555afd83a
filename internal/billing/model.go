package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

// PaymentMode describes how a bill was settled.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentUPI    PaymentMode = "upi"
	PaymentSplit  PaymentMode = "split"
	PaymentCredit PaymentMode = "credit"
)

// Item is a bill line. Name is canonical and Total is fixed when the line is written.
type Item struct {
	Name  string          `json:"name"`
	Qty   decimal.Decimal `json:"qty"`
	Rate  decimal.Decimal `json:"rate"`
	Total decimal.Decimal `json:"total"`
}

// Bill is a customer sale.
type Bill struct {
	ID             uuid.UUID       `json:"id"`
	Number         int64           `json:"number"`
	CustomerID     int64           `json:"customer_id"`
	CustomerMobile string          `json:"customer_mobile"`
	Items          []Item          `json:"items"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Discount       decimal.Decimal `json:"discount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	UPIAmount      decimal.Decimal `json:"upi_amount"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	PaymentMode    PaymentMode     `json:"payment_mode"`
	Deleted        bool            `json:"deleted"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StockLines returns the bill's consumption as ledger lines.
func (b Bill) StockLines() []stock.Line {
	return itemLines(b.Items)
}

func itemLines(items []Item) []stock.Line {
	lines := make([]stock.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, stock.Line{Name: item.Name, Qty: item.Qty})
	}
	return lines
}

// ListFilter narrows bill listings.
type ListFilter struct {
	CustomerID     int64
	IncludeDeleted bool
	Limit          int
}

// ErrBillNotFound indicates an unknown or deleted bill.
var ErrBillNotFound = fmt.Errorf("%w: bill", shared.ErrNotFound)

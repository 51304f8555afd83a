package vendors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// Vendor supplies stock on credit.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	Name  string          `json:"name"`
	Qty   decimal.Decimal `json:"qty"`
	Rate  decimal.Decimal `json:"rate"`
	Total decimal.Decimal `json:"total"`
}

// Purchase is stock bought from a vendor; its total becomes payable.
type Purchase struct {
	ID        uuid.UUID       `json:"id"`
	VendorID  int64           `json:"vendor_id"`
	Items     []PurchaseItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentMode is how a vendor was paid.
type PaymentMode string

const (
	PayCash PaymentMode = "cash"
	PayUPI  PaymentMode = "upi"
	PayBank PaymentMode = "bank"
)

// Payment settles part of a vendor's balance.
type Payment struct {
	ID        int64           `json:"id"`
	VendorID  int64           `json:"vendor_id"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      PaymentMode     `json:"mode"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Ledger is a vendor statement. Balance is what the shop still owes.
type Ledger struct {
	Vendor         Vendor          `json:"vendor"`
	Purchases      []Purchase      `json:"purchases"`
	Payments       []Payment       `json:"payments"`
	TotalPurchased decimal.Decimal `json:"total_purchased"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Balance        decimal.Decimal `json:"balance"`
}

var (
	// ErrVendorNotFound indicates an unknown vendor id.
	ErrVendorNotFound = fmt.Errorf("%w: vendor", shared.ErrNotFound)
	// ErrDuplicateVendor indicates the vendor mobile is already registered.
	ErrDuplicateVendor = fmt.Errorf("%w: vendor mobile already registered", shared.ErrDuplicate)
)

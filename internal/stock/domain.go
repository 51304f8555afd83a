package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// MovementKind enumerates ledger movements recorded on the stock card.
type MovementKind string

const (
	// MovementSale is consumption by a bill.
	MovementSale MovementKind = "SALE"
	// MovementRestore returns stock after a bill line was reduced or removed.
	MovementRestore MovementKind = "RESTORE"
	// MovementIntake is stock received from a vendor or a direct intake.
	MovementIntake MovementKind = "INTAKE"
	// MovementProduction credits manufactured output.
	MovementProduction MovementKind = "PRODUCTION"
	// MovementConsumption debits manufacturing raw material.
	MovementConsumption MovementKind = "CONSUMPTION"
	// MovementOpening records an opening-stock overwrite.
	MovementOpening MovementKind = "OPENING"
)

// Entry is the ledger row of one canonical item.
type Entry struct {
	ItemName     string          `json:"item_name"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	Rate         decimal.Decimal `json:"rate"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Tracked reports whether the entry participates in insufficiency checks.
func (e Entry) Tracked() bool {
	return e.AvailableQty.IsPositive()
}

// Movement is one stock card line.
type Movement struct {
	ID           int64           `json:"id"`
	ItemName     string          `json:"item_name"`
	Kind         MovementKind    `json:"kind"`
	QtyChange    decimal.Decimal `json:"qty_change"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Rate         decimal.Decimal `json:"rate"`
	RefType      string          `json:"ref_type,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Ref links a movement to the record that caused it.
type Ref struct {
	Type string
	ID   string
	Note string
}

// Line is an item quantity inside a record, keyed by canonical name.
type Line struct {
	Name string
	Qty  decimal.Decimal
}

// Receipt is stock coming in at a known unit cost.
type Receipt struct {
	Name string
	Qty  decimal.Decimal
	Rate decimal.Decimal
}

// Delta is the net change in consumption of one item between two line sets.
// A positive Qty consumes stock, a negative Qty returns it.
type Delta struct {
	ItemName string
	Qty      decimal.Decimal
}

// Drift is an entry whose balance differs from the sum of its movements.
type Drift struct {
	ItemName     string          `json:"item_name"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	MovementSum  decimal.Decimal `json:"movement_sum"`
}

// ListFilter narrows ledger listings.
type ListFilter struct {
	Search    string
	OnlyLow   bool
	Threshold decimal.Decimal
	Limit     int
}

// ErrEntryNotFound indicates a missing ledger row.
var ErrEntryNotFound = fmt.Errorf("%w: stock entry", shared.ErrNotFound)

// ErrInsufficientStock matches every InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidQuantity indicates a non-positive quantity where one is required.
var ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", shared.ErrValidation)

// ErrInvalidRate indicates a negative unit cost.
var ErrInvalidRate = fmt.Errorf("%w: rate must be >= 0", shared.ErrValidation)

// InsufficientStockError names the item that could not be satisfied.
type InsufficientStockError struct {
	ItemName  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %s, requested %s", e.ItemName, e.Available.String(), e.Requested.String())
}

// Is matches ErrInsufficientStock and shared.ErrRuleViolation.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == shared.ErrRuleViolation
}

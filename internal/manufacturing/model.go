package manufacturing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// Input is one consumed material with the cost it contributed.
type Input struct {
	Name      string          `json:"name"`
	QtyUsed   decimal.Decimal `json:"qty_used"`
	Rate      decimal.Decimal `json:"rate"`
	Cost      decimal.Decimal `json:"cost"`
	FromStock bool            `json:"from_stock"`
}

// Record is an append-only production run.
type Record struct {
	ID          uuid.UUID       `json:"id"`
	ProductName string          `json:"product_name"`
	ProducedQty decimal.Decimal `json:"produced_qty"`
	Inputs      []Input         `json:"inputs"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ErrRecordNotFound indicates an unknown production run.
var ErrRecordNotFound = fmt.Errorf("%w: manufacturing record", shared.ErrNotFound)

// InputCost is qty x rate rounded to two places.
func InputCost(qty, rate decimal.Decimal) decimal.Decimal {
	return qty.Mul(rate).Round(2)
}

// CostPerUnit divides total cost over produced quantity, rounded to two places.
func CostPerUnit(total, produced decimal.Decimal) decimal.Decimal {
	if !produced.IsPositive() {
		return decimal.Zero
	}
	return total.Div(produced).Round(2)
}

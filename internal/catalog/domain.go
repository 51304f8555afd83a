package catalog

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/shopledger/shopledger/internal/shared"
)

// Item is a catalog entry. Name is the canonical ledger key.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrItemNotFound indicates no item matched a name or code.
var ErrItemNotFound = fmt.Errorf("%w: item", shared.ErrNotFound)

// ErrDuplicateItem indicates a name or code already taken by another item.
var ErrDuplicateItem = fmt.Errorf("%w: item", shared.ErrDuplicate)

// ErrBlankName indicates an item reference without a usable name.
var ErrBlankName = fmt.Errorf("%w: item name required", shared.ErrValidation)

// FoldKey returns the matching key for a name or code: trimmed and case-folded.
// An empty input yields an empty key.
func FoldKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return cases.Fold().String(trimmed)
}

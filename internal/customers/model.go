package customers

import (
	"fmt"
	"time"

	"github.com/shopledger/shopledger/internal/shared"
)

// Type classifies customers for pricing and reporting.
type Type string

const (
	TypeRetail    Type = "retail"
	TypeWholesale Type = "wholesale"
)

// Customer is a buyer identified by mobile number.
type Customer struct {
	ID        int64     `json:"id"`
	Mobile    string    `json:"mobile"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch carries optional field updates. Nil fields are left untouched.
type Patch struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=120"`
	Type *Type   `json:"type" validate:"omitempty,oneof=retail wholesale"`
	City *string `json:"city" validate:"omitempty,max=80"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.City == nil
}

// Apply copies set fields onto c.
func (p Patch) Apply(c *Customer) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.City != nil {
		c.City = *p.City
	}
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
}

var (
	// ErrCustomerNotFound indicates no customer has the given mobile or id.
	ErrCustomerNotFound = fmt.Errorf("%w: customer", shared.ErrNotFound)
	// ErrDuplicateMobile indicates the mobile number is already registered.
	ErrDuplicateMobile = fmt.Errorf("%w: customer mobile already registered", shared.ErrDuplicate)
)

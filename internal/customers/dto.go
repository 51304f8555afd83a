package customers

import "strings"

// CreateCustomerRequest registers a customer.
type CreateCustomerRequest struct {
	Mobile string `json:"mobile" validate:"required,numeric,min=7,max=15"`
	Name   string `json:"name" validate:"required,max=120"`
	Type   Type   `json:"type" validate:"omitempty,oneof=retail wholesale"`
	City   string `json:"city" validate:"max=80"`
}

// NormalizeMobile strips spaces and dashes users commonly type.
func NormalizeMobile(raw string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
}

package types

import "strings"

// Geography is the customer location used for routing a case to an
// operating region. Country is mandatory, everything else optional.
type Geography struct {
	Country    string `json:"country"` // ISO 3166-1 alpha-2
	State      string `json:"state,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Validate checks the minimum required fields
func (g Geography) Validate() error {
	if strings.TrimSpace(g.Country) == "" {
		return ErrCountryRequired
	}
	return nil
}

// Normalized returns a copy with trimmed, upper-cased country/state
// and trimmed city/postal code, so matching is case-insensitive.
func (g Geography) Normalized() Geography {
	return Geography{
		Country:    strings.ToUpper(strings.TrimSpace(g.Country)),
		State:      strings.ToUpper(strings.TrimSpace(g.State)),
		City:       strings.TrimSpace(g.City),
		PostalCode: strings.TrimSpace(g.PostalCode),
	}
}

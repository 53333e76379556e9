package region

import (
	"time"

	"github.com/debtflow/platform/internal/shared/types"
)

// Region is an operating/jurisdictional grouping that scopes case
// handling: default currency, timezone, deadline template and the
// escalation route its cases feed into.
type Region struct {
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	DefaultCurrency  string    `json:"default_currency"`
	Timezone         string    `json:"timezone"`
	DeadlineTemplate string    `json:"deadline_template"`
	EscalationRoute  string    `json:"escalation_route"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Rule maps a geography predicate to a region. Nil fields are wildcards.
// Priority only breaks ties between rules of equal specificity; a more
// specific rule always wins regardless of priority.
type Rule struct {
	ID            types.ID  `json:"id"`
	RegionCode    string    `json:"region_code"`
	Country       *string   `json:"country,omitempty"`
	State         *string   `json:"state,omitempty"`
	CityPattern   *string   `json:"city_pattern,omitempty"`
	PostalPattern *string   `json:"postal_pattern,omitempty"`
	Priority      int       `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}

// Match is the result of resolving a geography against the rule set.
type Match struct {
	Region Region `json:"region"`
	Rule   Rule   `json:"rule"`
	Score  int    `json:"score"`
}

// Specificity weights per matched dimension. Postal outranks city
// outranks state outranks country, and every combination of dimensions
// produces a distinct ordering.
const (
	countryWeight = 10
	stateWeight   = 20
	cityWeight    = 30
	postalWeight  = 40
)

package region

import (
	"context"
	"strings"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
)

// RuleSource provides the rule set and region lookup for resolution.
type RuleSource interface {
	ListRules(ctx context.Context) ([]Rule, error)
	FindRegion(ctx context.Context, code string) (*Region, error)
}

// Resolver matches customer geography against the prioritized rule set.
// Resolution is side-effect free and order-independent: scoring depends
// only on which dimensions matched, never on rule iteration order.
type Resolver struct {
	source RuleSource
}

// NewResolver creates a resolver over a rule source
func NewResolver(source RuleSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve selects the single region for a geography. No surviving rule
// is a hard failure for auto-routing and returns NOT_FOUND.
func (r *Resolver) Resolve(ctx context.Context, geo types.Geography) (*Match, error) {
	if err := geo.Validate(); err != nil {
		return nil, errors.Validation("invalid geography", map[string]string{"country": "required"})
	}

	rules, err := r.source.ListRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load geography rules")
	}

	best, score := SelectRule(geo, rules)
	if best == nil {
		return nil, errors.NotFound("region rule", geo.Country)
	}

	region, err := r.source.FindRegion(ctx, best.RegionCode)
	if err != nil {
		return nil, err
	}

	return &Match{Region: *region, Rule: *best, Score: score}, nil
}

// SelectRule evaluates the rule set against a geography and returns the
// winning rule and its specificity score, or nil when nothing matches.
// Ties on score are broken by the lower declared priority integer, then
// by rule ID for full determinism.
func SelectRule(geo types.Geography, rules []Rule) (*Rule, int) {
	norm := geo.Normalized()

	var best *Rule
	bestScore := -1

	for i := range rules {
		rule := &rules[i]
		score, ok := scoreRule(norm, rule)
		if !ok {
			continue
		}

		switch {
		case score > bestScore:
			best, bestScore = rule, score
		case score == bestScore && best != nil:
			if rule.Priority < best.Priority ||
				(rule.Priority == best.Priority && rule.ID < best.ID) {
				best = rule
			}
		}
	}

	return best, bestScore
}

// scoreRule reports whether every non-nil rule field matches the
// geography, and the summed weight of the matched dimensions.
func scoreRule(geo types.Geography, rule *Rule) (int, bool) {
	score := 0

	if rule.Country != nil {
		if !strings.EqualFold(*rule.Country, geo.Country) {
			return 0, false
		}
		score += countryWeight
	}
	if rule.State != nil {
		if !strings.EqualFold(*rule.State, geo.State) {
			return 0, false
		}
		score += stateWeight
	}
	if rule.CityPattern != nil {
		if !patternMatch(*rule.CityPattern, geo.City) {
			return 0, false
		}
		score += cityWeight
	}
	if rule.PostalPattern != nil {
		if !patternMatch(*rule.PostalPattern, geo.PostalCode) {
			return 0, false
		}
		score += postalWeight
	}

	return score, true
}

// patternMatch supports case-insensitive exact values plus a trailing
// '*' wildcard ("10*" matches postal codes starting with 10).
func patternMatch(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(strings.TrimSpace(value))

	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == value
}

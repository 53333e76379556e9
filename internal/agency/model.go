package agency

import (
	"strings"
	"time"

	"github.com/debtflow/platform/internal/shared/types"
)

// Status defines the activation status of a collection agency
type Status string

const (
	StatusActive     Status = "active"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// Agency represents a third-party debt collection agency (DCA)
type Agency struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`

	Status Status `json:"status"`

	// Capacity
	CapacityLimit int `json:"capacity_limit"`
	CapacityUsed  int `json:"capacity_used"`

	// Track record
	PerformanceScore float64 `json:"performance_score"` // 0-100
	RecoveryRate     float64 `json:"recovery_rate"`     // 0-1
	SLACompliance    float64 `json:"sla_compliance"`    // 0-1

	// Specialization
	IndustryTags []string `json:"industry_tags"`
	SegmentTags  []string `json:"segment_tags"`
	RegionCodes  []string `json:"region_codes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Eligible reports whether the agency can take on a new case: it must
// be active with capacity headroom.
func (a Agency) Eligible() bool {
	return a.Status == StatusActive && a.CapacityUsed < a.CapacityLimit
}

// Utilization returns capacity used as a fraction of the limit
func (a Agency) Utilization() float64 {
	if a.CapacityLimit <= 0 {
		return 1
	}
	return float64(a.CapacityUsed) / float64(a.CapacityLimit)
}

// HasIndustry checks the industry specialization tags
func (a Agency) HasIndustry(industry string) bool {
	return containsFold(a.IndustryTags, industry)
}

// HasSegment checks the segment specialization tags
func (a Agency) HasSegment(segment string) bool {
	return containsFold(a.SegmentTags, segment)
}

func containsFold(tags []string, value string) bool {
	if value == "" {
		return false
	}
	for _, tag := range tags {
		if strings.EqualFold(tag, value) {
			return true
		}
	}
	return false
}

// CreateAgencyRequest is the request to onboard an agency
type CreateAgencyRequest struct {
	Name             string   `json:"name"`
	CapacityLimit    int      `json:"capacity_limit"`
	PerformanceScore float64  `json:"performance_score"`
	RecoveryRate     float64  `json:"recovery_rate"`
	IndustryTags     []string `json:"industry_tags"`
	SegmentTags      []string `json:"segment_tags"`
	RegionCodes      []string `json:"region_codes"`
}

// UpdateAgencyRequest is the request to update an agency
type UpdateAgencyRequest struct {
	Name             *string  `json:"name,omitempty"`
	Status           *Status  `json:"status,omitempty"`
	CapacityLimit    *int     `json:"capacity_limit,omitempty"`
	PerformanceScore *float64 `json:"performance_score,omitempty"`
	RecoveryRate     *float64 `json:"recovery_rate,omitempty"`
	IndustryTags     []string `json:"industry_tags,omitempty"`
	SegmentTags      []string `json:"segment_tags,omitempty"`
	RegionCodes      []string `json:"region_codes,omitempty"`
}

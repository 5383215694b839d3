package enums

import (
	"fmt"
	"strings"
)

// CustomerSegment is the behavioral label assigned by the segment classifier.
type CustomerSegment string

const (
	SegmentVIP       CustomerSegment = "vip"
	SegmentLoyal     CustomerSegment = "loyal"
	SegmentNew       CustomerSegment = "new"
	SegmentAtRisk    CustomerSegment = "at_risk"
	SegmentSlipping  CustomerSegment = "slipping"
	SegmentChurned   CustomerSegment = "churned"
	SegmentHighValue CustomerSegment = "high_value"
	SegmentFrequent  CustomerSegment = "frequent"
)

var validCustomerSegments = []CustomerSegment{
	SegmentVIP,
	SegmentLoyal,
	SegmentNew,
	SegmentAtRisk,
	SegmentSlipping,
	SegmentChurned,
	SegmentHighValue,
	SegmentFrequent,
}

// AllCustomerSegments returns every segment label in canonical order.
func AllCustomerSegments() []CustomerSegment {
	out := make([]CustomerSegment, len(validCustomerSegments))
	copy(out, validCustomerSegments)
	return out
}

// String implements fmt.Stringer.
func (s CustomerSegment) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CustomerSegment.
func (s CustomerSegment) IsValid() bool {
	for _, candidate := range validCustomerSegments {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCustomerSegment converts raw input into a CustomerSegment.
func ParseCustomerSegment(value string) (CustomerSegment, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCustomerSegments {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer segment %q", value)
}

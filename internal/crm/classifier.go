package crm

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// Field names a classifier input.
type Field string

const (
	FieldTotalSpent          Field = "total_spent"
	FieldOrderCount          Field = "order_count"
	FieldAvgOrderValue       Field = "avg_order_value"
	FieldDaysSinceLastOrder  Field = "days_since_last_order"
	FieldDaysSinceFirstOrder Field = "days_since_first_order"
	FieldLifetimeValue       Field = "lifetime_value"
)

var knownFields = map[Field]struct{}{
	FieldTotalSpent:          {},
	FieldOrderCount:          {},
	FieldAvgOrderValue:       {},
	FieldDaysSinceLastOrder:  {},
	FieldDaysSinceFirstOrder: {},
	FieldLifetimeValue:       {},
}

// Bound is a set of comparisons that must all hold for a field.
type Bound struct {
	GT  *float64 `yaml:"gt,omitempty" json:"gt,omitempty"`
	GTE *float64 `yaml:"gte,omitempty" json:"gte,omitempty"`
	LT  *float64 `yaml:"lt,omitempty" json:"lt,omitempty"`
	LTE *float64 `yaml:"lte,omitempty" json:"lte,omitempty"`
}

func (b Bound) empty() bool {
	return b.GT == nil && b.GTE == nil && b.LT == nil && b.LTE == nil
}

func (b Bound) holds(v float64) bool {
	if b.GT != nil && !(v > *b.GT) {
		return false
	}
	if b.GTE != nil && !(v >= *b.GTE) {
		return false
	}
	if b.LT != nil && !(v < *b.LT) {
		return false
	}
	if b.LTE != nil && !(v <= *b.LTE) {
		return false
	}
	return true
}

// Rule assigns Segment when every condition in When holds.
type Rule struct {
	Segment enums.CustomerSegment `yaml:"segment" json:"segment"`
	When    map[Field]Bound       `yaml:"when" json:"when"`
}

// Inputs are the profile values a rule can test.
type Inputs struct {
	TotalSpent          float64
	OrderCount          int
	AvgOrderValue       float64
	LifetimeValue       float64
	DaysSinceLastOrder  *int
	DaysSinceFirstOrder *int
}

// InputsFrom reads classifier inputs off a derived profile.
func InputsFrom(p CustomerProfile) Inputs {
	return Inputs{
		TotalSpent:          p.TotalSpent,
		OrderCount:          p.OrderCount,
		AvgOrderValue:       p.AvgOrderValue,
		LifetimeValue:       p.LifetimeValue,
		DaysSinceLastOrder:  p.DaysSinceLastOrder,
		DaysSinceFirstOrder: p.DaysSinceFirstOrder,
	}
}

func (in Inputs) value(f Field) (float64, bool) {
	switch f {
	case FieldTotalSpent:
		return in.TotalSpent, true
	case FieldOrderCount:
		return float64(in.OrderCount), true
	case FieldAvgOrderValue:
		return in.AvgOrderValue, true
	case FieldLifetimeValue:
		return in.LifetimeValue, true
	case FieldDaysSinceLastOrder:
		if in.DaysSinceLastOrder == nil {
			return 0, false
		}
		return float64(*in.DaysSinceLastOrder), true
	case FieldDaysSinceFirstOrder:
		if in.DaysSinceFirstOrder == nil {
			return 0, false
		}
		return float64(*in.DaysSinceFirstOrder), true
	}
	return 0, false
}

func (r Rule) matches(in Inputs) bool {
	for field, bound := range r.When {
		v, ok := in.value(field)
		if !ok || !bound.holds(v) {
			return false
		}
	}
	return true
}

// Classifier evaluates an ordered rule table. The first matching rule wins and
// customers matching nothing, or with no orders at all, are new.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates rules and returns a classifier over a private copy.
func NewClassifier(rules []Rule) (*Classifier, error) {
	copied := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		if !rule.Segment.IsValid() {
			return nil, fmt.Errorf("rule %d: unknown segment %q", i, rule.Segment)
		}
		if len(rule.When) == 0 {
			return nil, fmt.Errorf("rule %d (%s): at least one condition is required", i, rule.Segment)
		}
		when := make(map[Field]Bound, len(rule.When))
		for field, bound := range rule.When {
			if _, ok := knownFields[field]; !ok {
				return nil, fmt.Errorf("rule %d (%s): unknown field %q", i, rule.Segment, field)
			}
			if bound.empty() {
				return nil, fmt.Errorf("rule %d (%s): field %q has no comparison", i, rule.Segment, field)
			}
			when[field] = bound
		}
		copied = append(copied, Rule{Segment: rule.Segment, When: when})
	}
	return &Classifier{rules: copied}, nil
}

// MustClassifier panics on invalid rules. Intended for the built-in table.
func MustClassifier(rules []Rule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the segment for the given inputs.
func (c *Classifier) Classify(in Inputs) enums.CustomerSegment {
	if in.OrderCount <= 0 {
		return enums.SegmentNew
	}
	for _, rule := range c.rules {
		if rule.matches(in) {
			return rule.Segment
		}
	}
	return enums.SegmentNew
}

// Rules returns a copy of the active rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Fields lists the fields a rule references, sorted for stable output.
func (r Rule) Fields() []Field {
	fields := make([]Field, 0, len(r.When))
	for f := range r.When {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func limit(gt, gte, lt, lte *float64) Bound {
	return Bound{GT: gt, GTE: gte, LT: lt, LTE: lte}
}

func num(v float64) *float64 { return &v }

// DefaultRules is the built-in rule table. Lapsed customers are checked first
// so a big spender who stopped ordering reads as churned rather than vip.
func DefaultRules() []Rule {
	return []Rule{
		{Segment: enums.SegmentChurned, When: map[Field]Bound{FieldDaysSinceLastOrder: limit(num(180), nil, nil, nil)}},
		{Segment: enums.SegmentAtRisk, When: map[Field]Bound{FieldDaysSinceLastOrder: limit(num(90), nil, nil, nil)}},
		{Segment: enums.SegmentSlipping, When: map[Field]Bound{FieldDaysSinceLastOrder: limit(num(45), nil, nil, nil)}},
		{Segment: enums.SegmentVIP, When: map[Field]Bound{
			FieldLifetimeValue: limit(nil, num(1000), nil, nil),
			FieldOrderCount:    limit(nil, num(5), nil, nil),
		}},
		{Segment: enums.SegmentHighValue, When: map[Field]Bound{FieldAvgOrderValue: limit(nil, num(100), nil, nil)}},
		{Segment: enums.SegmentLoyal, When: map[Field]Bound{FieldOrderCount: limit(nil, num(10), nil, nil)}},
		{Segment: enums.SegmentFrequent, When: map[Field]Bound{FieldOrderCount: limit(nil, num(5), nil, nil)}},
	}
}

// DefaultClassifier classifies with DefaultRules.
func DefaultClassifier() *Classifier {
	return MustClassifier(DefaultRules())
}

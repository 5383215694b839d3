package crm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDefaultClassifier(t *testing.T) {
	classifier := DefaultClassifier()

	cases := []struct {
		name string
		in   Inputs
		want enums.CustomerSegment
	}{
		{"no orders is always new", Inputs{OrderCount: 0, LifetimeValue: 9000}, enums.SegmentNew},
		{"lapsed big spender is churned", Inputs{OrderCount: 20, LifetimeValue: 5000, TotalSpent: 5000, AvgOrderValue: 250, DaysSinceLastOrder: intPtr(200)}, enums.SegmentChurned},
		{"91 days is at risk", Inputs{OrderCount: 2, DaysSinceLastOrder: intPtr(91)}, enums.SegmentAtRisk},
		{"90 days is slipping", Inputs{OrderCount: 2, DaysSinceLastOrder: intPtr(90)}, enums.SegmentSlipping},
		{"45 days falls through", Inputs{OrderCount: 2, AvgOrderValue: 20, DaysSinceLastOrder: intPtr(45)}, enums.SegmentNew},
		{"vip", Inputs{OrderCount: 5, LifetimeValue: 1000, TotalSpent: 1000, AvgOrderValue: 200, DaysSinceLastOrder: intPtr(3)}, enums.SegmentVIP},
		{"high value", Inputs{OrderCount: 5, LifetimeValue: 999, TotalSpent: 999, AvgOrderValue: 199.8, DaysSinceLastOrder: intPtr(3)}, enums.SegmentHighValue},
		{"loyal", Inputs{OrderCount: 12, LifetimeValue: 600, AvgOrderValue: 50, DaysSinceLastOrder: intPtr(3)}, enums.SegmentLoyal},
		{"frequent", Inputs{OrderCount: 6, LifetimeValue: 300, AvgOrderValue: 50, DaysSinceLastOrder: intPtr(3)}, enums.SegmentFrequent},
		{"fallback", Inputs{OrderCount: 2, LifetimeValue: 40, AvgOrderValue: 20, DaysSinceLastOrder: intPtr(1)}, enums.SegmentNew},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classifier.Classify(tc.in))
		})
	}
}

func TestClassifierFirstMatchWins(t *testing.T) {
	classifier, err := NewClassifier([]Rule{
		{Segment: enums.SegmentLoyal, When: map[Field]Bound{FieldOrderCount: {GTE: num(2)}}},
		{Segment: enums.SegmentFrequent, When: map[Field]Bound{FieldOrderCount: {GTE: num(2)}}},
	})
	require.NoError(t, err)
	require.Equal(t, enums.SegmentLoyal, classifier.Classify(Inputs{OrderCount: 3}))
}

func TestClassifierUndefinedDaysFailCondition(t *testing.T) {
	classifier, err := NewClassifier([]Rule{
		{Segment: enums.SegmentLoyal, When: map[Field]Bound{FieldDaysSinceLastOrder: {LTE: num(10)}}},
	})
	require.NoError(t, err)
	require.Equal(t, enums.SegmentNew, classifier.Classify(Inputs{OrderCount: 3}))
	require.Equal(t, enums.SegmentLoyal, classifier.Classify(Inputs{OrderCount: 3, DaysSinceLastOrder: intPtr(4)}))
}

func TestNewClassifierValidation(t *testing.T) {
	cases := map[string]Rule{
		"unknown segment": {Segment: "dormant", When: map[Field]Bound{FieldOrderCount: {GT: num(1)}}},
		"no conditions":   {Segment: enums.SegmentVIP},
		"unknown field":   {Segment: enums.SegmentVIP, When: map[Field]Bound{"favorite_strain": {GT: num(1)}}},
		"empty bound":     {Segment: enums.SegmentVIP, When: map[Field]Bound{FieldOrderCount: {}}},
	}
	for name, rule := range cases {
		_, err := NewClassifier([]Rule{rule})
		require.Error(t, err, name)
	}
}

func TestClassifierRulesReturnsCopy(t *testing.T) {
	classifier := DefaultClassifier()
	rules := classifier.Rules()
	rules[0].Segment = enums.SegmentVIP
	require.Equal(t, enums.SegmentChurned, classifier.Rules()[0].Segment)
	require.Equal(t, []Field{FieldLifetimeValue, FieldOrderCount}, classifier.Rules()[3].Fields())
}

const sampleRules = `
rules:
  - segment: churned
    when:
      days_since_last_order: {gt: 120}
  - segment: vip
    when:
      total_spent: {gte: 1500}
      order_count: {gte: 3}
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(strings.NewReader(sampleRules))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	classifier, err := NewClassifier(rules)
	require.NoError(t, err)
	require.Equal(t, enums.SegmentChurned, classifier.Classify(Inputs{OrderCount: 1, DaysSinceLastOrder: intPtr(121)}))
	require.Equal(t, enums.SegmentVIP, classifier.Classify(Inputs{OrderCount: 3, TotalSpent: 1500, DaysSinceLastOrder: intPtr(5)}))
	require.Equal(t, enums.SegmentNew, classifier.Classify(Inputs{OrderCount: 2, TotalSpent: 1500, DaysSinceLastOrder: intPtr(5)}))
}

func TestParseRulesRejectsUnknownKeysAndEmptyFiles(t *testing.T) {
	_, err := ParseRules(strings.NewReader("rules:\n  - segment: vip\n    whenn: {}\n"))
	require.Error(t, err)

	_, err = ParseRules(strings.NewReader(""))
	require.ErrorContains(t, err, "empty")

	_, err = ParseRules(strings.NewReader("rules: []\n"))
	require.ErrorContains(t, err, "no rules")
}

func TestLoadClassifier(t *testing.T) {
	def, err := LoadClassifier("")
	require.NoError(t, err)
	require.Len(t, def.Rules(), len(DefaultRules()))

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))
	loaded, err := LoadClassifier(path)
	require.NoError(t, err)
	require.Len(t, loaded.Rules(), 2)

	_, err = LoadClassifier(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMarshalRulesIsReadable(t *testing.T) {
	raw, err := MarshalRules(DefaultRules())
	require.NoError(t, err)

	rules, err := ParseRules(strings.NewReader(string(raw)))
	require.NoError(t, err)
	classifier, err := NewClassifier(rules)
	require.NoError(t, err)
	require.Equal(t, DefaultClassifier().Rules(), classifier.Rules())
}

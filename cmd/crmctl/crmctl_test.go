package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestComputeMergesAndClassifies(t *testing.T) {
	orders := writeFile(t, "orders.json", `[
		{"id":"o1","customerEmail":"Dana@Example.com","customerName":"Dana Reyes","totalAmount":"40.00","createdAt":"2025-12-01T12:00:00Z"},
		{"id":"o2","customerEmail":"dana@example.com","totalAmount":25,"createdAt":"2025-12-20T12:00:00Z"},
		{"id":"o3","customerEmail":"sam@example.com","customerName":"Sam Lee","totalAmount":"60","createdAt":"2025-01-05T12:00:00Z"}
	]`)
	customers := writeFile(t, "customers.json", `[
		{"orgId":"local","email":"walkin@example.com","firstName":"Walk","lastName":"In"}
	]`)

	out, err := execute(t, "compute", "--orders", orders, "--customers", customers, "--now", "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	var decoded computeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	assert.Equal(t, 3, decoded.Stats.TotalCustomers)
	require.Len(t, decoded.Customers, 3)

	byEmail := map[string]enums.CustomerSegment{}
	counts := map[string]int{}
	for _, c := range decoded.Customers {
		byEmail[c.Email] = c.Segment
		counts[c.Email] = c.OrderCount
	}
	assert.Equal(t, 2, counts["dana@example.com"])
	assert.Equal(t, enums.SegmentChurned, byEmail["sam@example.com"])
	assert.Equal(t, "dana@example.com", decoded.Customers[0].Email)
	assert.NotNil(t, decoded.Suggestions)
}

func TestComputeRequiresInput(t *testing.T) {
	_, err := execute(t, "compute")
	require.Error(t, err)
}

func TestComputeRejectsBadNow(t *testing.T) {
	orders := writeFile(t, "orders.json", `[]`)
	_, err := execute(t, "compute", "--orders", orders, "--now", "yesterday")
	require.ErrorContains(t, err, "invalid --now")
}

func TestRulesValidate(t *testing.T) {
	good := writeFile(t, "rules.yaml", `rules:
  - segment: vip
    when:
      lifetime_value: {gte: 500}
`)
	out, err := execute(t, "rules", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rules ok")

	bad := writeFile(t, "bad.yaml", `rules:
  - segment: whale
    when:
      lifetime_value: {gte: 500}
`)
	_, err = execute(t, "rules", "validate", bad)
	require.Error(t, err)
}

func TestRulesDefaultRoundTripsThroughValidate(t *testing.T) {
	out, err := execute(t, "rules", "default")
	require.NoError(t, err)

	path := writeFile(t, "default.yaml", out)
	_, err = execute(t, "rules", "validate", path)
	require.NoError(t, err)
}

package bigquery

import (
	"context"
	"testing"

	"github.com/angelmondragon/dispensary-crm/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	cfg := config.BigQueryConfig{
		SpendingTable: " customer_spending ",
		SnapshotTable: "",
	}

	tables := configuredTables(cfg)

	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if tables[0] != "customer_spending" {
		t.Fatalf("expected customer_spending, got %s", tables[0])
	}
}

func TestClientOptionsPrioritizesJSON(t *testing.T) {
	gcp := config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	}

	opts := clientOptions(gcp)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
}

func TestClientOptionsWithFile(t *testing.T) {
	gcp := config.GCPConfig{
		ApplicationCredentials: "/tmp/creds",
	}

	opts := clientOptions(gcp)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option when using credentials file, got %d", len(opts))
	}
}

func TestClientOptionsEmpty(t *testing.T) {
	gcp := config.GCPConfig{}

	opts := clientOptions(gcp)
	if len(opts) != 0 {
		t.Fatalf("expected 0 options when no credentials provided, got %d", len(opts))
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if c.TableRef("x") != "" {
		t.Fatal("expected empty table ref from nil client")
	}
	if err := c.InsertRows(context.Background(), "t", []any{1}); err == nil {
		t.Fatal("expected insert on nil client to fail")
	}
	if _, err := c.Query(context.Background(), "SELECT 1", nil); err == nil {
		t.Fatal("expected query on nil client to fail")
	}
}

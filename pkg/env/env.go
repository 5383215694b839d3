package env

import (
	"os"
	"strings"
)

// Prefix namespaces the service's own variables.
const Prefix = "DCRM_"

// Get looks up key under Prefix first, then bare, and falls back when both
// are unset or blank. Platform variables like PORT resolve through the bare
// lookup.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix)
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}

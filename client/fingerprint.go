package client

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
)

// QueryFingerprint returns a short stable identifier for a statement,
// used in log lines so repeated executions of the same statement can be
// correlated without writing raw SQL at INFO level. Whitespace is
// collapsed first so formatting differences do not split the
// fingerprint.
func QueryFingerprint(query string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalizeQuery(query)))
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Package storage persists account ID to name mappings. Three backends share
// one contract: an in-memory map, a NATS JetStream KV bucket, and a DynamoDB
// table. Store semantics are full replacement: the stored set mirrors the
// latest batch, an omitted existing mapping is dropped, never merged.
package storage

import (
	"context"
	"strings"

	"github.com/jasonwadsworth/aws-account-name/types"
)

// AccountStore is the storage contract consumed by the account service.
//
// Lookups return the zero string for "absent" rather than an error; errors
// are reserved for backend failures.
type AccountStore interface {
	// Store replaces the full set of mappings with the given batch.
	Store(ctx context.Context, mappings []types.AccountMapping) error

	// GetByAccountID returns the stored name for id, or "".
	GetByAccountID(ctx context.Context, accountID string) (string, error)

	// GetByAccountName returns the ID whose name matches exactly,
	// case-insensitively, or "".
	GetByAccountName(ctx context.Context, accountName string) (string, error)

	// FuzzyLookup returns the ID of the first mapping whose name contains
	// the query or is contained by it, case-insensitively. Heuristic: short
	// names can produce false positives, which is why this is a separate
	// operation from GetByAccountName.
	FuzzyLookup(ctx context.Context, accountName string) (string, error)

	// Clear removes every stored mapping.
	Clear(ctx context.Context) error
}

// matchExact reports a case-insensitive exact name match.
func matchExact(stored, query string) bool {
	return strings.EqualFold(stored, query)
}

// matchFuzzy reports a case-insensitive substring match in either direction.
func matchFuzzy(stored, query string) bool {
	s, q := strings.ToLower(stored), strings.ToLower(query)
	return strings.Contains(s, q) || strings.Contains(q, s)
}

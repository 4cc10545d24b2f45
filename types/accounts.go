// Package types holds the shared value types passed between the extraction,
// storage, and transport layers.
package types

import (
	"strings"
	"time"
)

// MaxAccountNameLength caps stored account names after trimming.
const MaxAccountNameLength = 256

// AccountMapping associates a 12-digit AWS account ID with a human-readable
// account name. AccountID uniquely keys the mapping; a later store for the
// same ID fully replaces the earlier one.
type AccountMapping struct {
	AccountID   string    `json:"accountId" dynamodbav:"account_id"`
	AccountName string    `json:"accountName" dynamodbav:"account_name"`
	LastUpdated time.Time `json:"lastUpdated" dynamodbav:"last_updated"`
}

// ValidAccountID reports whether id is exactly 12 ASCII digits.
func ValidAccountID(id string) bool {
	if len(id) != 12 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeAccountName trims surrounding whitespace and caps the result at
// MaxAccountNameLength. Returns the empty string for all-whitespace input.
func NormalizeAccountName(name string) string {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) > MaxAccountNameLength {
		trimmed = trimmed[:MaxAccountNameLength]
	}
	return trimmed
}

// Normalize returns a copy of m with the ID left untouched and the name
// trimmed and length-capped. Validity is checked separately by Valid.
func (m AccountMapping) Normalize() AccountMapping {
	m.AccountName = NormalizeAccountName(m.AccountName)
	return m
}

// Valid reports whether the mapping can be stored: a well-formed account ID
// and a non-empty normalized name.
func (m AccountMapping) Valid() bool {
	return ValidAccountID(m.AccountID) && NormalizeAccountName(m.AccountName) != ""
}

// FilterValid normalizes a batch and drops malformed records. Valid siblings
// of a malformed record are kept; dropped records are returned separately so
// callers can log them.
func FilterValid(in []AccountMapping) (valid, dropped []AccountMapping) {
	for _, m := range in {
		n := m.Normalize()
		if n.Valid() {
			valid = append(valid, n)
		} else {
			dropped = append(dropped, m)
		}
	}
	return valid, dropped
}

// Package extract holds the pluggable extractor functions that locate
// account data inside portal and console documents. Extractors are best
// effort: they return what they found or nothing, never a fatal error, and
// the retry layer treats their outcome purely by truthiness.
package extract

import (
	"regexp"
	"strings"

	"github.com/jasonwadsworth/aws-account-name/types"
)

// AccountsExtractor is the portal-side extractor capability: zero arguments,
// a non-empty batch of mappings on success, an empty batch otherwise.
type AccountsExtractor func() ([]types.AccountMapping, error)

// TextReader reads a single string (an account ID or name) off a document,
// returning "" when the value is not present yet.
type TextReader func() (string, error)

var (
	accountIDPattern = regexp.MustCompile(`\b(\d{12})\b`)
	// Console menus render the ID grouped with dashes: 1234-5678-9012.
	dashedAccountIDPattern = regexp.MustCompile(`\b(\d{4})-(\d{4})-(\d{4})\b`)
)

// FindAccountID scans text for the first 12-digit account ID, accepting both
// contiguous and dash-grouped renderings. Returns "" when none is present.
func FindAccountID(text string) string {
	if m := accountIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := dashedAccountIDPattern.FindStringSubmatch(text); m != nil {
		return m[1] + m[2] + m[3]
	}
	return ""
}

// firstLine returns the first non-empty trimmed line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

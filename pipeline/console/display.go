package console

import (
	"time"

	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
)

// PlaceholderName is rendered when no name could be resolved for the
// account shown on the console.
const PlaceholderName = "unknown account"

// BadgeSelector is where the document renderer injects the resolved name.
const BadgeSelector = "#aws-account-name-badge"

// DisplayUpdate is one resolved console display state.
type DisplayUpdate struct {
	AccountID   string    `json:"accountId"`
	AccountName string    `json:"accountName"`
	URL         string    `json:"url"`
	At          time.Time `json:"at"`
}

// DisplayRenderer receives exactly one update per pipeline invocation.
// Implementations must be idempotent: retries and navigation restarts can
// both deliver the same update again, and rendering twice must not duplicate
// output.
type DisplayRenderer interface {
	Render(update DisplayUpdate) error
}

// RenderFunc adapts a function to DisplayRenderer.
type RenderFunc func(update DisplayUpdate) error

// Render implements DisplayRenderer.
func (f RenderFunc) Render(update DisplayUpdate) error { return f(update) }

// BadgeRenderer injects the resolved account name into the document as a
// badge element. Idempotent by construction: writing the same selector
// replaces the previous badge rather than appending another.
type BadgeRenderer struct {
	doc *dom.StaticDocument
}

// NewBadgeRenderer creates a renderer writing into doc.
func NewBadgeRenderer(doc *dom.StaticDocument) *BadgeRenderer {
	return &BadgeRenderer{doc: doc}
}

// Render implements DisplayRenderer.
func (r *BadgeRenderer) Render(update DisplayUpdate) error {
	r.doc.SetElement(BadgeSelector, &dom.Element{
		Tag:  "span",
		ID:   "aws-account-name-badge",
		Text: update.AccountName,
		Attrs: map[string]string{
			"data-account-id": update.AccountID,
		},
	})
	return nil
}

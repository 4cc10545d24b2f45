package extract

import (
	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
)

// ConsoleSelectors names the console document locations the display pipeline
// reads from and writes to.
type ConsoleSelectors struct {
	// AccountMenu is the navigation menu entry whose presence gates the
	// display pipeline.
	AccountMenu string
	// AccountID locates a direct rendering of the account ID.
	AccountID string
	// AccountName locates a direct rendering of the account name/alias,
	// present only on consoles with an account alias configured.
	AccountName string
}

// DefaultConsoleSelectors returns selectors for the current console markup.
func DefaultConsoleSelectors() ConsoleSelectors {
	return ConsoleSelectors{
		AccountMenu: `#nav-usernameMenu`,
		AccountID:   `span[data-testid="account-detail-menu"] .account-id`,
		AccountName: `span[data-testid="account-detail-menu"] .account-alias`,
	}
}

// ConsoleReader reads account identity off a console document.
type ConsoleReader struct {
	doc       dom.Document
	selectors ConsoleSelectors
}

// NewConsoleReader creates a reader over doc.
func NewConsoleReader(doc dom.Document, selectors ConsoleSelectors) *ConsoleReader {
	return &ConsoleReader{doc: doc, selectors: selectors}
}

// AccountMenuLocator returns the locator the display pipeline probes for.
func (r *ConsoleReader) AccountMenuLocator() dom.Locator {
	return func() (*dom.Element, error) {
		return r.doc.Query(r.selectors.AccountMenu), nil
	}
}

// ReadAccountID returns the account ID rendered on the page, scanning the
// dedicated ID node first and the account menu text second. Returns "" when
// not present yet.
func (r *ConsoleReader) ReadAccountID() (string, error) {
	if el := r.doc.Query(r.selectors.AccountID); el != nil {
		if id := FindAccountID(el.Text); id != "" {
			return id, nil
		}
	}
	if el := r.doc.Query(r.selectors.AccountMenu); el != nil {
		if id := FindAccountID(el.Text); id != "" {
			return id, nil
		}
	}
	return "", nil
}

// ReadAccountName returns the account name rendered directly on the page, or
// "" when the console shows no alias and the name must be resolved from
// storage instead.
func (r *ConsoleReader) ReadAccountName() (string, error) {
	el := r.doc.Query(r.selectors.AccountName)
	if el == nil {
		return "", nil
	}
	return firstLine(el.Text), nil
}

package extract

import (
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
	"github.com/jasonwadsworth/aws-account-name/types"
)

// PortalSelectors names the document locations the portal extractor reads.
// The defaults match the identity portal's account list; deployments can
// override them when the portal markup shifts.
type PortalSelectors struct {
	// AccountCell matches one account entry in the rendered account list.
	AccountCell string
	// AccountName is the attribute on an account cell carrying the name,
	// when the portal renders one.
	AccountNameAttr string
}

// DefaultPortalSelectors returns the selectors for the current portal markup.
func DefaultPortalSelectors() PortalSelectors {
	return PortalSelectors{
		AccountCell:     `div[data-testid="account-list-cell"]`,
		AccountNameAttr: "data-account-name",
	}
}

// PortalExtractor scrapes account ID/name pairs from an identity portal
// document. Two heuristics run in order: the rendered account list elements,
// then any JSON state blob embedded in the page text. Malformed records are
// dropped individually; valid siblings survive.
type PortalExtractor struct {
	doc       dom.Document
	selectors PortalSelectors
	logger    *slog.Logger
}

// NewPortalExtractor creates an extractor over doc.
func NewPortalExtractor(doc dom.Document, selectors PortalSelectors, logger *slog.Logger) *PortalExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalExtractor{doc: doc, selectors: selectors, logger: logger}
}

// Extract returns every account mapping currently readable from the
// document. An empty result means "nothing found yet", never an error the
// caller should act on.
func (e *PortalExtractor) Extract() ([]types.AccountMapping, error) {
	raw := e.fromElements()
	if len(raw) == 0 {
		raw = e.fromEmbeddedJSON()
	}
	if len(raw) == 0 {
		return nil, nil
	}

	valid, dropped := types.FilterValid(raw)
	for _, d := range dropped {
		e.logger.Warn("dropping malformed extracted account",
			"account_id", d.AccountID,
			"name_len", len(d.AccountName))
	}
	return valid, nil
}

// fromElements reads the rendered account list cells.
func (e *PortalExtractor) fromElements() []types.AccountMapping {
	cells := e.doc.QueryAll(e.selectors.AccountCell)
	if len(cells) == 0 {
		return nil
	}

	var out []types.AccountMapping
	for _, cell := range cells {
		id := FindAccountID(cell.Text)
		if id == "" {
			id = FindAccountID(cell.Attr("data-account-id"))
		}
		if id == "" {
			continue
		}

		name := cell.Attr(e.selectors.AccountNameAttr)
		if name == "" {
			name = nameFromCellText(cell.Text, id)
		}
		out = append(out, types.AccountMapping{AccountID: id, AccountName: name})
	}
	return out
}

// nameFromCellText takes the first line of the cell that is neither the raw
// account ID nor an email address. The portal renders name, email, and ID as
// separate lines in varying orders.
func nameFromCellText(text, id string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Contains(trimmed, "@") {
			continue
		}
		if FindAccountID(trimmed) == trimmed || trimmed == id {
			continue
		}
		return trimmed
	}
	return ""
}

// fromEmbeddedJSON scans page text for a JSON state blob with an account
// list. Accepts either a top-level "accounts" array or the portal API shape
// "result.accounts"; entries carry accountId/accountName keys.
func (e *PortalExtractor) fromEmbeddedJSON() []types.AccountMapping {
	text := e.doc.Text()
	blob := embeddedJSON(text)
	if blob == "" {
		return nil
	}

	list := gjson.Get(blob, "accounts")
	if !list.Exists() {
		list = gjson.Get(blob, "result.accounts")
	}
	if !list.IsArray() {
		return nil
	}

	var out []types.AccountMapping
	list.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("accountId").String()
		name := entry.Get("accountName").String()
		if name == "" {
			name = entry.Get("name").String()
		}
		if id != "" {
			out = append(out, types.AccountMapping{AccountID: id, AccountName: name})
		}
		return true
	})
	return out
}

// embeddedJSON returns the page text itself when it is a JSON document, or
// the first balanced JSON object found inside it otherwise.
func embeddedJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if gjson.Valid(trimmed) {
		return trimmed
	}

	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		candidate := balancedObject(trimmed[start:])
		if candidate != "" && gjson.Valid(candidate) {
			if gjson.Get(candidate, "accounts").Exists() || gjson.Get(candidate, "result.accounts").Exists() {
				return candidate
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return ""
}

// balancedObject returns the shortest brace-balanced prefix of s, or "".
func balancedObject(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

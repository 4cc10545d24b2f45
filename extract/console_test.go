package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/pkg/dom"
)

func TestConsoleReader_ReadAccountID(t *testing.T) {
	doc := dom.NewStaticDocument("https://console.aws.example.com/ec2")
	sel := DefaultConsoleSelectors()
	r := NewConsoleReader(doc, sel)

	id, err := r.ReadAccountID()
	require.NoError(t, err)
	assert.Empty(t, id, "nothing rendered yet")

	// Menu text only; dashed rendering.
	doc.SetElement(sel.AccountMenu, &dom.Element{Tag: "span", Text: "user @ 1234-5678-9012"})
	id, err = r.ReadAccountID()
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	// Dedicated ID node wins over menu text.
	doc.SetElement(sel.AccountID, &dom.Element{Tag: "span", Text: "999988887777"})
	id, err = r.ReadAccountID()
	require.NoError(t, err)
	assert.Equal(t, "999988887777", id)
}

func TestConsoleReader_ReadAccountName(t *testing.T) {
	doc := dom.NewStaticDocument("https://console.aws.example.com/ec2")
	sel := DefaultConsoleSelectors()
	r := NewConsoleReader(doc, sel)

	name, err := r.ReadAccountName()
	require.NoError(t, err)
	assert.Empty(t, name, "no alias on this console")

	doc.SetElement(sel.AccountName, &dom.Element{Tag: "span", Text: "\nprod-alias\n"})
	name, err = r.ReadAccountName()
	require.NoError(t, err)
	assert.Equal(t, "prod-alias", name)
}

func TestConsoleReader_AccountMenuLocator(t *testing.T) {
	doc := dom.NewStaticDocument("https://console.aws.example.com/ec2")
	sel := DefaultConsoleSelectors()
	locate := NewConsoleReader(doc, sel).AccountMenuLocator()

	el, err := locate()
	require.NoError(t, err)
	assert.Nil(t, el)

	doc.SetElement(sel.AccountMenu, &dom.Element{Tag: "span", ID: "nav-usernameMenu"})
	el, err = locate()
	require.NoError(t, err)
	assert.NotNil(t, el)
}

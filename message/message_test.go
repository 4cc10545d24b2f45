package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/types"
)

func TestRequest_Validate(t *testing.T) {
	store := NewStoreAccounts([]types.AccountMapping{{AccountID: "123456789012", AccountName: "Prod"}})
	assert.NoError(t, store.Validate())
	assert.NotEmpty(t, store.RequestID)

	assert.Error(t, Request{Type: TypeStoreAccounts}.Validate())
	assert.Error(t, Request{Type: TypeGetAccountName}.Validate())
	assert.Error(t, Request{Type: TypeGetAccountByName}.Validate())
	assert.Error(t, Request{Type: Type("DROP_TABLES")}.Validate())

	assert.NoError(t, NewGetAccountName("123456789012").Validate())
	assert.NoError(t, NewGetAccountByName("Prod").Validate())
	assert.NoError(t, NewClearData().Validate())
}

func TestResponse_Helpers(t *testing.T) {
	req := NewClearData()

	ok := OK(req)
	assert.True(t, ok.Success)
	assert.Equal(t, req.RequestID, ok.RequestID)
	assert.Empty(t, ok.Error)

	fail := Fail(req, assert.AnError)
	assert.False(t, fail.Success)
	assert.Equal(t, assert.AnError.Error(), fail.Error)

	failNil := Fail(req, nil)
	assert.False(t, failNil.Success)
	assert.NotEmpty(t, failNil.Error)
}

func TestRequest_JSONWireShape(t *testing.T) {
	req := NewGetAccountName("123456789012")
	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"GET_ACCOUNT_NAME"`)
	assert.Contains(t, string(data), `"accountId":"123456789012"`)
	assert.NotContains(t, string(data), "accounts", "omitempty keeps unused fields off the wire")
}

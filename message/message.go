// Package message defines the typed request/response envelopes exchanged
// between the extraction pipelines and the account storage service.
package message

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jasonwadsworth/aws-account-name/types"
)

// Type is the request discriminant.
type Type string

const (
	// TypeStoreAccounts replaces the full set of stored account mappings
	TypeStoreAccounts Type = "STORE_ACCOUNTS"
	// TypeGetAccountName resolves an account ID to its stored name
	TypeGetAccountName Type = "GET_ACCOUNT_NAME"
	// TypeGetAccountByName resolves a name back to an account ID
	TypeGetAccountByName Type = "GET_ACCOUNT_BY_NAME"
	// TypeClearData removes every stored mapping
	TypeClearData Type = "CLEAR_DATA"
)

// Request is one typed call to the storage service.
type Request struct {
	RequestID   string                 `json:"requestId"`
	Type        Type                   `json:"type"`
	Accounts    []types.AccountMapping `json:"accounts,omitempty"`
	AccountID   string                 `json:"accountId,omitempty"`
	AccountName string                 `json:"accountName,omitempty"`
}

// Response carries the outcome. Success false plus Error is a service-level
// failure; Success true with empty payload fields means "not found".
type Response struct {
	RequestID   string `json:"requestId"`
	Success     bool   `json:"success"`
	AccountID   string `json:"accountId,omitempty"`
	AccountName string `json:"accountName,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewStoreAccounts builds a STORE_ACCOUNTS request.
func NewStoreAccounts(accounts []types.AccountMapping) Request {
	return Request{RequestID: uuid.NewString(), Type: TypeStoreAccounts, Accounts: accounts}
}

// NewGetAccountName builds a GET_ACCOUNT_NAME request.
func NewGetAccountName(accountID string) Request {
	return Request{RequestID: uuid.NewString(), Type: TypeGetAccountName, AccountID: accountID}
}

// NewGetAccountByName builds a GET_ACCOUNT_BY_NAME request.
func NewGetAccountByName(accountName string) Request {
	return Request{RequestID: uuid.NewString(), Type: TypeGetAccountByName, AccountName: accountName}
}

// NewClearData builds a CLEAR_DATA request.
func NewClearData() Request {
	return Request{RequestID: uuid.NewString(), Type: TypeClearData}
}

// Validate checks the envelope shape for the given discriminant.
func (r Request) Validate() error {
	switch r.Type {
	case TypeStoreAccounts:
		if len(r.Accounts) == 0 {
			return fmt.Errorf("%s request carries no accounts", r.Type)
		}
	case TypeGetAccountName:
		if r.AccountID == "" {
			return fmt.Errorf("%s request missing accountId", r.Type)
		}
	case TypeGetAccountByName:
		if r.AccountName == "" {
			return fmt.Errorf("%s request missing accountName", r.Type)
		}
	case TypeClearData:
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	return nil
}

// OK builds a success response for req.
func OK(req Request) Response {
	return Response{RequestID: req.RequestID, Success: true}
}

// Fail builds a failure response for req.
func Fail(req Request, err error) Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Response{RequestID: req.RequestID, Success: false, Error: msg}
}

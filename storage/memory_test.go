package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/types"
)

func mapping(id, name string) types.AccountMapping {
	return types.AccountMapping{AccountID: id, AccountName: name}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{
		mapping("123456789012", "Prod"),
		mapping("234567890123", "Staging"),
	}))

	name, err := s.GetByAccountID(ctx, "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Prod", name)

	name, err = s.GetByAccountID(ctx, "000000000000")
	require.NoError(t, err)
	assert.Empty(t, name, "absent resolves to empty, not error")
}

func TestMemoryStore_NamesStoredTrimmed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{mapping("123456789012", "  Prod  ")}))

	name, err := s.GetByAccountID(ctx, "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Prod", name)
}

func TestMemoryStore_ReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{
		mapping("111111111111", "A1"),
		mapping("222222222222", "A2"),
	}))
	require.NoError(t, s.Store(ctx, []types.AccountMapping{
		mapping("222222222222", "B2-renamed"),
		mapping("333333333333", "B3"),
	}))

	// Omitted mapping is dropped (mirror, not merge).
	name, _ := s.GetByAccountID(ctx, "111111111111")
	assert.Empty(t, name)

	name, _ = s.GetByAccountID(ctx, "222222222222")
	assert.Equal(t, "B2-renamed", name, "later store fully replaces")

	name, _ = s.GetByAccountID(ctx, "333333333333")
	assert.Equal(t, "B3", name)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_ClearTotality(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{
		mapping("111111111111", "A"),
		mapping("222222222222", "B"),
	}))
	require.NoError(t, s.Clear(ctx))

	for _, id := range []string{"111111111111", "222222222222"} {
		name, err := s.GetByAccountID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, name)
	}
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_GetByAccountName_ExactCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{mapping("123456789012", "Production")}))

	id, err := s.GetByAccountName(ctx, "production")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	id, err = s.GetByAccountName(ctx, "PRODUCTION")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	// Exact lookup does not do substrings.
	id, err = s.GetByAccountName(ctx, "Prod")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestMemoryStore_FuzzyLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{mapping("123456789012", "Production")}))

	// Query contained in stored name.
	id, err := s.FuzzyLookup(ctx, "duct")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	// Stored name contained in query.
	id, err = s.FuzzyLookup(ctx, "My Production Account")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)

	id, err = s.FuzzyLookup(ctx, "staging")
	require.NoError(t, err)
	assert.Empty(t, id)

	// Empty queries never match.
	id, err = s.FuzzyLookup(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestMemoryStore_ScenarioStoreThenReadTrimmed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Store(ctx, []types.AccountMapping{mapping("123456789012", "  Prod  ")}))

	name, err := s.GetByAccountID(ctx, "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Prod", name)
}

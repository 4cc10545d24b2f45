package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/types"
)

// KVOptions configures KV store behavior.
type KVOptions struct {
	Timeout      time.Duration // Per-operation timeout
	MaxValueSize int           // Maximum size for values
}

// DefaultKVOptions returns sensible defaults.
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout:      5 * time.Second,
		MaxValueSize: 64 * 1024,
	}
}

// KVStore is the AccountStore backed by a NATS JetStream KV bucket: one key
// per account ID, JSON-encoded mapping values. Survives process restarts and
// is shared by every resolver attached to the same NATS deployment.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// NewKVStore creates a store over an existing bucket.
func NewKVStore(bucket jetstream.KeyValue, logger *slog.Logger, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KVStore{bucket: bucket, options: options, logger: logger}
}

// EnsureBucket creates or binds the account mapping bucket.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "AWS account ID to name mappings",
		History:     1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "KVStore", "EnsureBucket", "bucket create")
	}
	return kv, nil
}

func (s *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.options.Timeout > 0 {
		return context.WithTimeout(ctx, s.options.Timeout)
	}
	return ctx, func() {}
}

// Store implements AccountStore. The bucket is made to mirror the batch:
// every batch entry is put, every key absent from the batch is deleted.
func (s *KVStore) Store(ctx context.Context, mappings []types.AccountMapping) error {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	keep := make(map[string]bool, len(mappings))
	now := time.Now()
	for _, m := range mappings {
		n := m.Normalize()
		if n.LastUpdated.IsZero() {
			n.LastUpdated = now
		}

		data, err := json.Marshal(n)
		if err != nil {
			return errors.Wrap(err, "KVStore", "Store", "encode mapping")
		}
		if len(data) > s.options.MaxValueSize {
			s.logger.Warn("skipping oversized mapping value",
				"account_id", n.AccountID,
				"size", len(data))
			continue
		}
		if _, err := s.bucket.Put(ctx, n.AccountID, data); err != nil {
			return errors.WrapTransient(err, "KVStore", "Store", fmt.Sprintf("kv put %s", n.AccountID))
		}
		keep[n.AccountID] = true
	}

	// Drop keys not present in this batch (mirror, not merge).
	existing, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range existing {
		if keep[key] {
			continue
		}
		if err := s.bucket.Delete(ctx, key); err != nil {
			return errors.WrapTransient(err, "KVStore", "Store", fmt.Sprintf("kv delete %s", key))
		}
	}
	return nil
}

// GetByAccountID implements AccountStore.
func (s *KVStore) GetByAccountID(ctx context.Context, accountID string) (string, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	entry, err := s.bucket.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", nil
		}
		return "", errors.WrapTransient(err, "KVStore", "GetByAccountID", "kv get")
	}

	var m types.AccountMapping
	if err := json.Unmarshal(entry.Value(), &m); err != nil {
		return "", errors.WrapInvalid(err, "KVStore", "GetByAccountID", "decode mapping")
	}
	return m.AccountName, nil
}

// GetByAccountName implements AccountStore.
func (s *KVStore) GetByAccountName(ctx context.Context, accountName string) (string, error) {
	return s.scanByName(ctx, accountName, matchExact)
}

// FuzzyLookup implements AccountStore.
func (s *KVStore) FuzzyLookup(ctx context.Context, accountName string) (string, error) {
	if accountName == "" {
		return "", nil
	}
	return s.scanByName(ctx, accountName, matchFuzzy)
}

func (s *KVStore) scanByName(ctx context.Context, query string, match func(stored, query string) bool) (string, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	keys, err := s.keys(ctx)
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue // deleted between list and get
			}
			return "", errors.WrapTransient(err, "KVStore", "scanByName", "kv get")
		}
		var m types.AccountMapping
		if err := json.Unmarshal(entry.Value(), &m); err != nil {
			s.logger.Warn("skipping undecodable mapping", "key", key, "error", err)
			continue
		}
		if match(m.AccountName, query) {
			return m.AccountID, nil
		}
	}
	return "", nil
}

// Clear implements AccountStore.
func (s *KVStore) Clear(ctx context.Context) error {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			return errors.WrapTransient(err, "KVStore", "Clear", fmt.Sprintf("kv delete %s", key))
		}
	}
	return nil
}

func (s *KVStore) keys(ctx context.Context) ([]string, error) {
	lister, err := s.bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "keys", "kv list")
	}
	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

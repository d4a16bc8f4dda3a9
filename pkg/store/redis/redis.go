package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/consts"
)

// RedisStore implements the record store using Redis. Records are stored as
// JSON under "record:{id}" with a per-kind id set for kind queries.
type RedisStore struct {
	client *redis.Client
}

// New creates a new RedisStore.
func New(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(id string) string {
	return consts.KeyPrefixRecord + id
}

func kindKey(kind record.Kind) string {
	return consts.KeyPrefixKind + string(kind)
}

func otherKind(kind record.Kind) record.Kind {
	if kind == record.KindArticle {
		return record.KindTicket
	}
	return record.KindArticle
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *RedisStore) Get(ctx context.Context, id string) (*record.Record, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	var rec record.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

// Upsert inserts or replaces a record by its ID and indexes it by kind.
// The id is removed from the opposite kind set in the same transaction, so
// a record whose kind changed is never listed under both kinds.
func (s *RedisStore) Upsert(ctx context.Context, rec *record.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(rec.ID), b, 0)
	pipe.SAdd(ctx, kindKey(rec.Kind), rec.ID)
	pipe.SRem(ctx, kindKey(otherKind(rec.Kind)), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a record by id. The id is removed from both kind sets in
// one transaction, so no prior read of the record's kind is needed and a
// concurrent upsert cannot strand the id in a kind set.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(id))
	pipe.SRem(ctx, kindKey(record.KindArticle), id)
	pipe.SRem(ctx, kindKey(record.KindTicket), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// QueryByKind returns all records of the given kind.
func (s *RedisStore) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	ids, err := s.client.SMembers(ctx, kindKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ids of kind %s: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records of kind %s: %w", kind, err)
	}

	var records []*record.Record
	for i, v := range values {
		if v == nil {
			// Id set out of sync with the deleted value; skip.
			continue
		}
		data, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type for record %s", ids[i])
		}
		var rec record.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", ids[i], err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Count returns the total number of stored records.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	var total int64
	for _, kind := range []record.Kind{record.KindArticle, record.KindTicket} {
		n, err := s.client.SCard(ctx, kindKey(kind)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to count records of kind %s: %w", kind, err)
		}
		total += n
	}
	return total, nil
}

// SearchText returns records whose title, description or summary contains
// term. Redis has no server-side text index here; matching is client-side.
func (s *RedisStore) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	kinds := []record.Kind{record.KindArticle, record.KindTicket}
	if kind != "" {
		kinds = []record.Kind{kind}
	}

	term = strings.ToLower(term)
	var out []*record.Record
	for _, k := range kinds {
		records, err := s.QueryByKind(ctx, k)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if strings.Contains(strings.ToLower(rec.Title), term) ||
				strings.Contains(strings.ToLower(rec.Description), term) ||
				strings.Contains(strings.ToLower(rec.Summary), term) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

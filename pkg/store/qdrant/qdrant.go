package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/consts"
)

// scrollLimit bounds one candidate fetch. The retrieval layer ranks the whole
// candidate set in memory anyway, so collections are expected to stay well
// below this.
const scrollLimit = 10000

// QdrantStore persists records as Qdrant points. Point ids are UUIDv5 values
// derived from the record id, so upserting the same record id replaces the
// same point; the record itself travels in the payload.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

// New creates a new QdrantStore.
func New(host string, port int, collectionName string, vectorSize uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	store := &QdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}

	if err := store.initCollection(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) initCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}
	return nil
}

func pointID(recordID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *QdrantStore) Get(ctx context.Context, id string) (*record.Record, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collectionName,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return decodePayload(points[0].Payload, id)
}

// Upsert inserts or replaces a record by its ID.
func (s *QdrantStore) Upsert(ctx context.Context, rec *record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	payload := map[string]*qdrant.Value{
		consts.ColID:          qdrant.NewValueString(rec.ID),
		consts.ColKind:        qdrant.NewValueString(string(rec.Kind)),
		consts.ColTitle:       qdrant.NewValueString(rec.Title),
		consts.ColDescription: qdrant.NewValueString(rec.Description),
		consts.ColSummary:     qdrant.NewValueString(rec.Summary),
		"data":                qdrant.NewValueString(string(data)),
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      pointID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Embedding...),
				Payload: payload,
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a record by id.
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qdrant.NewPointsSelector(pointID(id)),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// QueryByKind returns all records of the given kind.
func (s *QdrantStore) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	return s.scroll(ctx, kindFilter(kind))
}

// Count returns the total number of stored records.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int64(count), nil
}

// SearchText returns records whose title, description or summary contains
// term. The kind filter runs server-side, the substring match client-side.
func (s *QdrantStore) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	records, err := s.scroll(ctx, kindFilter(kind))
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(term)
	var out []*record.Record
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Title), term) ||
			strings.Contains(strings.ToLower(rec.Description), term) ||
			strings.Contains(strings.ToLower(rec.Summary), term) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func kindFilter(kind record.Kind) *qdrant.Filter {
	if kind == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(consts.ColKind, string(kind)),
		},
	}
}

func (s *QdrantStore) scroll(ctx context.Context, filter *qdrant.Filter) ([]*record.Record, error) {
	limit := uint32(scrollLimit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collectionName,
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll records: %w", err)
	}

	records := make([]*record.Record, len(points))
	for i, p := range points {
		rec, err := decodePayload(p.Payload, "")
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func decodePayload(payload map[string]*qdrant.Value, id string) (*record.Record, error) {
	data, ok := payload["data"]
	if !ok {
		return nil, fmt.Errorf("record %s payload has no data field", id)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(data.GetStringValue()), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

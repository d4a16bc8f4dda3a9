package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/consts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists records as documents in a MongoDB collection, keyed by
// the record id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New creates a new MongoStore.
func New(client *mongo.Client, dbName, collectionName string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *MongoStore) Get(ctx context.Context, id string) (*record.Record, error) {
	var rec record.Record
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return &rec, nil
}

// Upsert inserts or replaces a record by its ID.
func (s *MongoStore) Upsert(ctx context.Context, rec *record.Record) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a record by id.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// QueryByKind returns all records of the given kind.
func (s *MongoStore) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	return s.find(ctx, bson.M{consts.ColKind: string(kind)})
}

// Count returns the total number of stored records.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// SearchText returns records whose title, description or summary contains term.
func (s *MongoStore) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	pattern := primitive.Regex{Pattern: escapeRegex(term), Options: "i"}
	filter := bson.M{
		"$or": bson.A{
			bson.M{consts.ColTitle: pattern},
			bson.M{consts.ColDescription: pattern},
			bson.M{consts.ColSummary: pattern},
		},
	}
	if kind != "" {
		filter[consts.ColKind] = string(kind)
	}
	return s.find(ctx, filter)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]*record.Record, error) {
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*record.Record
	for cursor.Next(ctx) {
		var rec record.Record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// escapeRegex quotes regex metacharacters so the search term is matched
// literally.
func escapeRegex(term string) string {
	var out []byte
	for i := 0; i < len(term); i++ {
		c := term[i]
		switch c {
		case '.', '+', '*', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

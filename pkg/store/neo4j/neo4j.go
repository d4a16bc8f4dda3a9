package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/consts"
)

// Neo4jStore persists records as Record nodes keyed by id. The full record is
// kept as a JSON property; kind and the searchable text fields are lifted into
// node properties so queries stay in Cypher.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jStore.
func New(uri, username, password, dbName string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	return &Neo4jStore{
		driver: driver,
		dbName: dbName,
	}, nil
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *Neo4jStore) Get(ctx context.Context, id string) (*record.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`MATCH (r:%s {id: $id}) RETURN r.data`, consts.LabelRecord)
		res, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return res.Record().Values[0], nil
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if result == nil {
		return nil, nil
	}

	return decode(result, id)
}

// Upsert inserts or replaces a record by its ID.
func (s *Neo4jStore) Upsert(ctx context.Context, rec *record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MERGE (r:%s {id: $id})
		SET r.%s = $kind,
			r.%s = $title,
			r.%s = $description,
			r.%s = $summary,
			r.data = $data
		RETURN r
		`, consts.LabelRecord,
			consts.ColKind, consts.ColTitle, consts.ColDescription, consts.ColSummary)

		params := map[string]any{
			"id":          rec.ID,
			"kind":        string(rec.Kind),
			"title":       rec.Title,
			"description": rec.Description,
			"summary":     rec.Summary,
			"data":        string(data),
		}
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a record by id.
func (s *Neo4jStore) Delete(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`MATCH (r:%s {id: $id}) DETACH DELETE r`, consts.LabelRecord)
		_, err := tx.Run(ctx, query, map[string]any{"id": id})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// QueryByKind returns all records of the given kind.
func (s *Neo4jStore) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	query := fmt.Sprintf(`MATCH (r:%s {%s: $kind}) RETURN r.data`, consts.LabelRecord, consts.ColKind)
	return s.collect(ctx, query, map[string]any{"kind": string(kind)})
}

// Count returns the total number of stored records.
func (s *Neo4jStore) Count(ctx context.Context) (int64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`MATCH (r:%s) RETURN count(r)`, consts.LabelRecord)
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return rec.Values[0], nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", result)
	}
	return count, nil
}

// SearchText returns records whose title, description or summary contains term.
func (s *Neo4jStore) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	query := fmt.Sprintf(`
	MATCH (r:%s)
	WHERE (toLower(r.%s) CONTAINS $term
		OR toLower(r.%s) CONTAINS $term
		OR toLower(r.%s) CONTAINS $term)
	`, consts.LabelRecord, consts.ColTitle, consts.ColDescription, consts.ColSummary)

	params := map[string]any{"term": strings.ToLower(term)}
	if kind != "" {
		query += fmt.Sprintf(" AND r.%s = $kind", consts.ColKind)
		params["kind"] = string(kind)
	}
	query += " RETURN r.data"

	return s.collect(ctx, query, params)
}

func (s *Neo4jStore) collect(ctx context.Context, query string, params map[string]any) ([]*record.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var records []*record.Record
		for res.Next(ctx) {
			rec, err := decode(res.Record().Values[0], "")
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	return result.([]*record.Record), nil
}

func decode(value any, id string) (*record.Record, error) {
	data, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected data type %T for record %s", value, id)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

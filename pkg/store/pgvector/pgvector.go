package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/consts"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists records in Postgres with the embedding in a native pgvector
// column, so the candidate fetch can later move to server-side ranking without
// changing the store boundary.
type Store struct {
	db *gorm.DB
}

// RecordModel represents the database schema for a record.
type RecordModel struct {
	ID   string `gorm:"primaryKey"`
	Kind string `gorm:"index"`

	Version      string
	Category     string
	Title        string
	Introduction string
	Instructions string
	Keywords     string

	TrackingIndex             string
	Description               string
	CloseNotes                string
	Summary                   string
	TicketQuality             string
	UserProficiency           string
	PotentialImpact           string
	ResolutionAppropriateness string
	PotentialRootCause        string

	Explanations []byte          `gorm:"type:jsonb"`
	Embedding    pgvector.Vector `gorm:"type:vector(3072)"` // text-embedding-3-large; adjust for other models

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name.
func (RecordModel) TableName() string {
	return consts.TableNameRecords
}

// New creates a new Store.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable pgvector extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	var model RecordModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return fromModel(&model)
}

// Upsert inserts or replaces a record by its ID.
func (s *Store) Upsert(ctx context.Context, rec *record.Record) error {
	model, err := toModel(rec)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&RecordModel{}, "id = ?", id).Error
}

// QueryByKind returns all records of the given kind.
func (s *Store) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	var models []RecordModel
	if err := s.db.WithContext(ctx).Where("kind = ?", string(kind)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query records of kind %s: %w", kind, err)
	}
	return fromModels(models)
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&RecordModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// SearchText returns records whose title, description or summary contains term.
func (s *Store) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	pattern := "%" + strings.ToLower(term) + "%"

	tx := s.db.WithContext(ctx).Where(
		"lower(title) LIKE ? OR lower(description) LIKE ? OR lower(summary) LIKE ?",
		pattern, pattern, pattern,
	)
	if kind != "" {
		tx = tx.Where("kind = ?", string(kind))
	}

	var models []RecordModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	return fromModels(models)
}

// Nearest returns the limit records of the given kind closest to query by
// cosine distance, ranked server-side with the pgvector <=> operator.
func (s *Store) Nearest(ctx context.Context, query []float32, kind record.Kind, limit int) ([]*record.Record, error) {
	var models []RecordModel
	err := s.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order(clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{pgvector.NewVector(query)}}).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest records: %w", err)
	}
	return fromModels(models)
}

func toModel(rec *record.Record) (*RecordModel, error) {
	var explanationsJSON []byte
	if len(rec.Explanations) > 0 {
		b, err := json.Marshal(rec.Explanations)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal explanations: %w", err)
		}
		explanationsJSON = b
	}

	return &RecordModel{
		ID:                        rec.ID,
		Kind:                      string(rec.Kind),
		Version:                   rec.Version,
		Category:                  rec.Category,
		Title:                     rec.Title,
		Introduction:              rec.Introduction,
		Instructions:              rec.Instructions,
		Keywords:                  rec.Keywords,
		TrackingIndex:             rec.TrackingIndex,
		Description:               rec.Description,
		CloseNotes:                rec.CloseNotes,
		Summary:                   rec.Summary,
		TicketQuality:             rec.TicketQuality,
		UserProficiency:           rec.UserProficiency,
		PotentialImpact:           rec.PotentialImpact,
		ResolutionAppropriateness: rec.ResolutionAppropriateness,
		PotentialRootCause:        rec.PotentialRootCause,
		Explanations:              explanationsJSON,
		Embedding:                 pgvector.NewVector(rec.Embedding),
		CreatedAt:                 rec.CreatedAt,
		UpdatedAt:                 rec.UpdatedAt,
	}, nil
}

func fromModel(model *RecordModel) (*record.Record, error) {
	rec := &record.Record{
		ID:                        model.ID,
		Kind:                      record.Kind(model.Kind),
		Version:                   model.Version,
		Category:                  model.Category,
		Title:                     model.Title,
		Introduction:              model.Introduction,
		Instructions:              model.Instructions,
		Keywords:                  model.Keywords,
		TrackingIndex:             model.TrackingIndex,
		Description:               model.Description,
		CloseNotes:                model.CloseNotes,
		Summary:                   model.Summary,
		TicketQuality:             model.TicketQuality,
		UserProficiency:           model.UserProficiency,
		PotentialImpact:           model.PotentialImpact,
		ResolutionAppropriateness: model.ResolutionAppropriateness,
		PotentialRootCause:        model.PotentialRootCause,
		Embedding:                 model.Embedding.Slice(),
		CreatedAt:                 model.CreatedAt,
		UpdatedAt:                 model.UpdatedAt,
	}

	if len(model.Explanations) > 0 {
		if err := json.Unmarshal(model.Explanations, &rec.Explanations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal explanations for record %s: %w", model.ID, err)
		}
	}

	return rec, nil
}

func fromModels(models []RecordModel) ([]*record.Record, error) {
	records := make([]*record.Record, len(models))
	for i := range models {
		rec, err := fromModel(&models[i])
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

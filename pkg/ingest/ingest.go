// Package ingest turns raw article and ticket inputs into stored, embedded
// records, enforcing the identity and versioning rules of the knowledge base.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/supportkit/kbase/pkg/embed"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store"
)

// versionStep is the amount an article's version grows on each update.
const versionStep = 0.1

// Pipeline converts raw records into persisted, embedded records.
type Pipeline struct {
	store    store.Store
	embedder embed.Embedder
	debug    bool
	now      func() time.Time

	mu sync.Mutex
	// idLocks keeps one mutex per article id seen and is never pruned, so
	// it grows with the number of distinct article ids ingested through
	// this pipeline.
	idLocks    map[string]*sync.Mutex
	lastTicket int64 // nanosecond timestamp of the last ticket id issued
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(p *Pipeline) {
		p.debug = enable
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a new Pipeline over the given store and embedder.
func New(s store.Store, embedder embed.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    s,
		embedder: embedder,
		now:      time.Now,
		idLocks:  make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// IngestArticle stores one KB article. An article id seen before keeps its id,
// takes the new field values, and has its version bumped by 0.1; an unseen id
// is created with the version from the input. The record is written in a
// single upsert after the embedding succeeds, never partially.
func (p *Pipeline) IngestArticle(ctx context.Context, raw map[string]string) (*record.Record, error) {
	if err := validate(raw, record.ArticleFields); err != nil {
		return nil, err
	}

	id := raw[record.FieldArticleID]

	// The read-modify-write below must be atomic per article id, or two
	// concurrent ingestions of the same id lose a version bump.
	lock := p.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up article %s: %w", id, err)
	}

	version := raw[record.FieldVersion]
	createdAt := p.now().UTC()
	if existing != nil {
		version, err = bumpVersion(existing.Version)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", id, err)
		}
		if !existing.CreatedAt.IsZero() {
			createdAt = existing.CreatedAt
		}
		if p.debug {
			slog.Info("updating existing article", "id", id, "version", version)
		}
	} else if p.debug {
		slog.Info("creating new article", "id", id)
	}

	content := raw[record.FieldTitle] + " " + raw[record.FieldIntroduction] + " " + raw[record.FieldInstructions]
	embedding, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed article %s: %w", id, err)
	}

	rec := &record.Record{
		ID:           id,
		Kind:         record.KindArticle,
		Version:      version,
		Category:     raw[record.FieldCategory],
		Title:        raw[record.FieldTitle],
		Introduction: raw[record.FieldIntroduction],
		Instructions: raw[record.FieldInstructions],
		Keywords:     raw[record.FieldKeywords],
		Embedding:    embedding,
		CreatedAt:    createdAt,
		UpdatedAt:    p.now().UTC(),
	}

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store article %s: %w", id, err)
	}

	if p.debug {
		slog.Info("stored article", "id", id, "version", rec.Version)
	}
	return rec, nil
}

// IngestTicket stores one ticket. Tickets are append-only history: every call
// creates a new record whose id combines the tracking index with a unique,
// strictly increasing timestamp.
func (p *Pipeline) IngestTicket(ctx context.Context, raw map[string]string) (*record.Record, error) {
	if err := validate(raw, record.TicketFields); err != nil {
		return nil, err
	}

	tracking := raw[record.FieldTrackingIndex]
	createdAt := p.ticketTimestamp()
	id := tracking + "_" + createdAt.Format(time.RFC3339Nano)

	content := raw[record.FieldDescription] + " " + raw[record.FieldCloseNotes] + " " + raw[record.FieldSummary]
	embedding, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed ticket %s: %w", id, err)
	}

	rec := &record.Record{
		ID:                        id,
		Kind:                      record.KindTicket,
		TrackingIndex:             tracking,
		Description:               raw[record.FieldDescription],
		CloseNotes:                raw[record.FieldCloseNotes],
		Summary:                   raw[record.FieldSummary],
		TicketQuality:             raw[record.FieldTicketQuality],
		UserProficiency:           raw[record.FieldUserProficiency],
		PotentialImpact:           raw[record.FieldPotentialImpact],
		ResolutionAppropriateness: raw[record.FieldResolutionAppropriateness],
		PotentialRootCause:        raw[record.FieldPotentialRootCause],
		Embedding:                 embedding,
		CreatedAt:                 createdAt,
		UpdatedAt:                 createdAt,
	}

	for _, field := range record.TicketExplanationFields {
		if v, ok := raw[field]; ok {
			if rec.Explanations == nil {
				rec.Explanations = make(map[string]string)
			}
			rec.Explanations[field] = v
		}
	}

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store ticket %s: %w", id, err)
	}

	if p.debug {
		slog.Info("stored ticket", "id", id)
	}
	return rec, nil
}

// IngestBatch processes raws strictly in input order through IngestArticle or
// IngestTicket depending on kind. The first failure aborts the remainder; the
// returned records match the input order.
func (p *Pipeline) IngestBatch(ctx context.Context, raws []map[string]string, kind record.Kind) ([]*record.Record, error) {
	if !kind.Valid() {
		return nil, &record.UnknownKindError{Kind: kind}
	}

	records := make([]*record.Record, 0, len(raws))
	for i, raw := range raws {
		var (
			rec *record.Record
			err error
		)
		switch kind {
		case record.KindArticle:
			rec, err = p.IngestArticle(ctx, raw)
		case record.KindTicket:
			rec, err = p.IngestTicket(ctx, raw)
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}

	if p.debug {
		slog.Info("batch ingested", "count", len(records), "kind", string(kind))
	}
	return records, nil
}

// bumpVersion parses a decimal version string, adds the version step, and
// formats it back with one decimal place ("1.0" -> "1.1").
func bumpVersion(version string) (string, error) {
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return "", fmt.Errorf("failed to parse version %q: %w", version, err)
	}
	return strconv.FormatFloat(v+versionStep, 'f', 1, 64), nil
}

// ticketTimestamp returns a strictly increasing timestamp, so two tickets for
// the same tracking index ingested back to back never share an id.
func (p *Pipeline) ticketTimestamp() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	nano := p.now().UTC().UnixNano()
	if nano <= p.lastTicket {
		nano = p.lastTicket + 1
	}
	p.lastTicket = nano
	return time.Unix(0, nano).UTC()
}

func (p *Pipeline) lockFor(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.idLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.idLocks[id] = lock
	}
	return lock
}

func validate(raw map[string]string, required []string) error {
	for _, field := range required {
		if _, ok := raw[field]; !ok {
			return &record.MissingFieldError{Field: field}
		}
	}
	return nil
}

// Package retrieval answers similarity queries and aggregates statistics over
// the stored records.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supportkit/kbase/pkg/embed"
	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/similarity"
	"github.com/supportkit/kbase/pkg/store"
)

// unknownGroup is the grouping key for records missing a grouping attribute.
const unknownGroup = "Unknown"

// Match is one search result: a record reference with its similarity score.
type Match struct {
	ID         string      `json:"id"`
	Kind       record.Kind `json:"kind"`
	Excerpt    string      `json:"excerpt"`
	Similarity float64     `json:"similarity"`
}

// Stats aggregates counts over the stored corpus.
type Stats struct {
	TotalArticles        int            `json:"total_articles"`
	TotalTickets         int            `json:"total_tickets"`
	ArticlesByCategory   map[string]int `json:"articles_by_category"`
	TicketsByQuality     map[string]int `json:"tickets_by_quality"`
	TicketsByProficiency map[string]int `json:"tickets_by_proficiency"`
}

// Service answers similarity queries against the store.
type Service struct {
	store    store.Store
	embedder embed.Embedder
	debug    bool
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(s *Service) {
		s.debug = enable
	}
}

// New creates a new Service over the given store and embedder.
func New(st store.Store, embedder embed.Embedder, opts ...Option) *Service {
	s := &Service{
		store:    st,
		embedder: embedder,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Search embeds query and returns the k stored records of the given kind most
// similar to it, best first. The whole candidate set of that kind is ranked in
// memory; ties keep store order, and an empty candidate set yields an empty
// result.
func (s *Service) Search(ctx context.Context, query string, kind record.Kind, k int) ([]Match, error) {
	if !kind.Valid() {
		return nil, &record.UnknownKindError{Kind: kind}
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := s.store.QueryByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates of kind %s: %w", kind, err)
	}
	if len(candidates) == 0 {
		return []Match{}, nil
	}

	embeddings := make([][]float32, len(candidates))
	for i, rec := range candidates {
		embeddings[i] = rec.Embedding
	}

	ranked, err := similarity.TopK(queryEmbedding, embeddings, k)
	if err != nil {
		return nil, fmt.Errorf("failed to rank candidates: %w", err)
	}

	matches := make([]Match, len(ranked))
	for i, idx := range ranked {
		rec := candidates[idx]
		score, err := similarity.Cosine(queryEmbedding, rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		matches[i] = Match{
			ID:         rec.ID,
			Kind:       rec.Kind,
			Excerpt:    rec.Excerpt(),
			Similarity: score,
		}
	}

	if s.debug {
		slog.Info("search completed", "kind", string(kind), "candidates", len(candidates), "results", len(matches))
	}
	return matches, nil
}

// Statistics returns per-kind totals and the frequency tables used by the
// reporting layer. Records missing a grouping attribute count under "Unknown".
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	articles, err := s.store.QueryByKind(ctx, record.KindArticle)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles: %w", err)
	}
	tickets, err := s.store.QueryByKind(ctx, record.KindTicket)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets: %w", err)
	}

	stats := &Stats{
		TotalArticles:        len(articles),
		TotalTickets:         len(tickets),
		ArticlesByCategory:   make(map[string]int),
		TicketsByQuality:     make(map[string]int),
		TicketsByProficiency: make(map[string]int),
	}

	for _, a := range articles {
		stats.ArticlesByCategory[orUnknown(a.Category)]++
	}
	for _, t := range tickets {
		stats.TicketsByQuality[orUnknown(t.TicketQuality)]++
		stats.TicketsByProficiency[orUnknown(t.UserProficiency)]++
	}

	return stats, nil
}

func orUnknown(v string) string {
	if v == "" {
		return unknownGroup
	}
	return v
}

package inmemory

import (
	"context"
	"testing"

	"github.com/supportkit/kbase/pkg/record"
)

func TestGetAbsent(t *testing.T) {
	s := New()

	rec, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for absent id, got %+v", rec)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle, Version: "1.0"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle, Version: "1.1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec, err := s.Get(ctx, "KB1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Version != "1.1" {
		t.Errorf("expected version 1.1 after replace, got %s", rec.Version)
	}

	count, _ := s.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 record, got %d", count)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Delete(ctx, "KB1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "KB1"); err != nil {
		t.Errorf("deleting an absent id should not fail: %v", err)
	}

	rec, _ := s.Get(ctx, "KB1")
	if rec != nil {
		t.Error("record still present after delete")
	}
}

func TestQueryByKind(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle})
	_ = s.Upsert(ctx, &record.Record{ID: "KB2", Kind: record.KindArticle})
	_ = s.Upsert(ctx, &record.Record{ID: "T1_x", Kind: record.KindTicket})

	articles, err := s.QueryByKind(ctx, record.KindArticle)
	if err != nil {
		t.Fatalf("QueryByKind failed: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("expected 2 articles, got %d", len(articles))
	}

	tickets, err := s.QueryByKind(ctx, record.KindTicket)
	if err != nil {
		t.Fatalf("QueryByKind failed: %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("expected 1 ticket, got %d", len(tickets))
	}
}

func TestSearchText(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle, Title: "Password Reset Guide"})
	_ = s.Upsert(ctx, &record.Record{ID: "T1_x", Kind: record.KindTicket, Description: "cannot reset password"})
	_ = s.Upsert(ctx, &record.Record{ID: "T2_x", Kind: record.KindTicket, Summary: "printer jam"})

	all, err := s.SearchText(ctx, "PASSWORD", "")
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 matches across kinds, got %d", len(all))
	}

	tickets, err := s.SearchText(ctx, "password", record.KindTicket)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != "T1_x" {
		t.Errorf("expected only T1_x, got %+v", tickets)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle, Title: "original"})

	rec, _ := s.Get(ctx, "KB1")
	rec.Title = "mutated"

	again, _ := s.Get(ctx, "KB1")
	if again.Title != "original" {
		t.Error("mutating a returned record leaked into the store")
	}
}

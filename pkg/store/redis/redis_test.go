package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/supportkit/kbase/pkg/record"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
}

func TestUpsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle, Title: "Reset guide"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec, err := s.Get(ctx, "KB1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec == nil || rec.Title != "Reset guide" {
		t.Errorf("unexpected record: %+v", rec)
	}

	absent, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if absent != nil {
		t.Errorf("expected nil for absent id, got %+v", absent)
	}
}

func TestDeleteClearsKindMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &record.Record{ID: "KB1", Kind: record.KindArticle}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Delete(ctx, "KB1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	rec, err := s.Get(ctx, "KB1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec != nil {
		t.Error("record still present after delete")
	}

	for _, kind := range []record.Kind{record.KindArticle, record.KindTicket} {
		records, err := s.QueryByKind(ctx, kind)
		if err != nil {
			t.Fatalf("QueryByKind(%s) failed: %v", kind, err)
		}
		if len(records) != 0 {
			t.Errorf("id still listed under kind %s after delete", kind)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 after delete, got %d", count)
	}

	if err := s.Delete(ctx, "KB1"); err != nil {
		t.Errorf("deleting an absent id should not fail: %v", err)
	}
}

func TestUpsertKindChangeMovesMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &record.Record{ID: "R1", Kind: record.KindArticle}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, &record.Record{ID: "R1", Kind: record.KindTicket}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	articles, err := s.QueryByKind(ctx, record.KindArticle)
	if err != nil {
		t.Fatalf("QueryByKind failed: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("id still listed as article after kind change, got %d records", len(articles))
	}

	tickets, err := s.QueryByKind(ctx, record.KindTicket)
	if err != nil {
		t.Fatalf("QueryByKind failed: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != "R1" {
		t.Errorf("expected R1 listed as ticket, got %+v", tickets)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1 after kind change, got %d", count)
	}
}

func TestSearchText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*record.Record{
		{ID: "KB1", Kind: record.KindArticle, Title: "Password Reset Guide"},
		{ID: "T1_x", Kind: record.KindTicket, Description: "cannot reset password"},
		{ID: "T2_x", Kind: record.KindTicket, Summary: "printer jam"},
	}
	for _, rec := range records {
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", rec.ID, err)
		}
	}

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

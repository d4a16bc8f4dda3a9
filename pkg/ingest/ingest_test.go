package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/supportkit/kbase/pkg/record"
	"github.com/supportkit/kbase/pkg/store/inmemory"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func articleRaw(id, version string) map[string]string {
	return map[string]string{
		record.FieldArticleID:    id,
		record.FieldVersion:      version,
		record.FieldCategory:     "Troubleshooting",
		record.FieldTitle:        "How to reset your password",
		record.FieldIntroduction: "This article explains resetting your password.",
		record.FieldInstructions: "Go to the login page and click 'Forgot Password'.",
		record.FieldKeywords:     "password, reset, login",
	}
}

func ticketRaw(tracking string) map[string]string {
	return map[string]string{
		record.FieldTrackingIndex:             tracking,
		record.FieldDescription:               "User unable to log in",
		record.FieldCloseNotes:                "Guided user through password reset",
		record.FieldSummary:                   "Password reset assistance",
		record.FieldTicketQuality:             "Good",
		record.FieldUserProficiency:           "Beginner",
		record.FieldPotentialImpact:           "Low",
		record.FieldResolutionAppropriateness: "Appropriate",
		record.FieldPotentialRootCause:        "Forgotten password",
	}
}

func TestIngestArticle_Create(t *testing.T) {
	st := inmemory.New()
	emb := &stubEmbedder{vector: []float32{1, 2, 3}}
	p := New(st, emb)

	rec, err := p.IngestArticle(context.Background(), articleRaw("KB1001", "1.0"))
	if err != nil {
		t.Fatalf("IngestArticle failed: %v", err)
	}

	if rec.ID != "KB1001" {
		t.Errorf("expected id KB1001, got %s", rec.ID)
	}
	if rec.Kind != record.KindArticle {
		t.Errorf("expected kind %s, got %s", record.KindArticle, rec.Kind)
	}
	if rec.Version != "1.0" {
		t.Errorf("expected version 1.0 on create, got %s", rec.Version)
	}
	if len(rec.Embedding) != 3 {
		t.Errorf("expected embedding of length 3, got %d", len(rec.Embedding))
	}

	want := "How to reset your password This article explains resetting your password. Go to the login page and click 'Forgot Password'."
	if len(emb.calls) != 1 || emb.calls[0] != want {
		t.Errorf("unexpected embedding text: %q", emb.calls)
	}

	stored, err := st.Get(context.Background(), "KB1001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored == nil {
		t.Fatal("article was not persisted")
	}
}

func TestIngestArticle_UpdateBumpsVersion(t *testing.T) {
	st := inmemory.New()
	p := New(st, &stubEmbedder{vector: []float32{1}})
	ctx := context.Background()

	first, err := p.IngestArticle(ctx, articleRaw("KB1", "1.0"))
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if first.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", first.Version)
	}

	// Raw version is ignored on update; the stored version wins.
	second, err := p.IngestArticle(ctx, articleRaw("KB1", "9.9"))
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if second.Version != "1.1" {
		t.Errorf("expected version 1.1, got %s", second.Version)
	}

	third, err := p.IngestArticle(ctx, articleRaw("KB1", "1.0"))
	if err != nil {
		t.Fatalf("third ingest failed: %v", err)
	}
	if third.Version != "1.2" {
		t.Errorf("expected version 1.2, got %s", third.Version)
	}
}

func TestIngestArticle_MissingField(t *testing.T) {
	p := New(inmemory.New(), &stubEmbedder{vector: []float32{1}})

	raw := articleRaw("KB1", "1.0")
	delete(raw, record.FieldTitle)

	_, err := p.IngestArticle(context.Background(), raw)
	var missing *record.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != record.FieldTitle {
		t.Errorf("expected missing field %q, got %q", record.FieldTitle, missing.Field)
	}
}

func TestIngestArticle_EmbedFailureWritesNothing(t *testing.T) {
	st := inmemory.New()
	p := New(st, &stubEmbedder{err: errors.New("provider down")})

	if _, err := p.IngestArticle(context.Background(), articleRaw("KB1", "1.0")); err == nil {
		t.Fatal("expected error")
	}

	count, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no partial write, found %d records", count)
	}
}

func TestIngestTicket_UniqueIDs(t *testing.T) {
	st := inmemory.New()
	// Frozen clock: uniqueness must come from the monotonic guard.
	fixed := time.Date(2024, 7, 14, 12, 0, 0, 0, time.UTC)
	p := New(st, &stubEmbedder{vector: []float32{1}}, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	first, err := p.IngestTicket(ctx, ticketRaw("T001"))
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	second, err := p.IngestTicket(ctx, ticketRaw("T001"))
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("expected distinct ticket ids, both were %s", first.ID)
	}

	for _, id := range []string{first.ID, second.ID} {
		rec, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", id, err)
		}
		if rec == nil {
			t.Errorf("ticket %s not retrievable", id)
		}
	}
}

func TestIngestTicket_OptionalExplanations(t *testing.T) {
	p := New(inmemory.New(), &stubEmbedder{vector: []float32{1}})

	raw := ticketRaw("T001")
	raw[record.FieldTicketQualityExplanation] = "clear problem statement"

	rec, err := p.IngestTicket(context.Background(), raw)
	if err != nil {
		t.Fatalf("IngestTicket failed: %v", err)
	}

	if got := rec.Explanations[record.FieldTicketQualityExplanation]; got != "clear problem statement" {
		t.Errorf("expected explanation copied through, got %q", got)
	}
	if _, ok := rec.Explanations[record.FieldSummaryExplanation]; ok {
		t.Error("absent explanation field should stay absent")
	}
}

func TestIngestTicket_MissingField(t *testing.T) {
	p := New(inmemory.New(), &stubEmbedder{vector: []float32{1}})

	raw := ticketRaw("T001")
	delete(raw, record.FieldCloseNotes)

	_, err := p.IngestTicket(context.Background(), raw)
	var missing *record.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}

func TestIngestBatch_Order(t *testing.T) {
	p := New(inmemory.New(), &stubEmbedder{vector: []float32{1}})

	raws := []map[string]string{
		ticketRaw("T001"),
		ticketRaw("T002"),
		ticketRaw("T003"),
	}

	records, err := p.IngestBatch(context.Background(), raws, record.KindTicket)
	if err != nil {
		t.Fatalf("IngestBatch failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	seen := make(map[string]bool)
	for i, want := range []string{"T001", "T002", "T003"} {
		if records[i].TrackingIndex != want {
			t.Errorf("record %d: expected tracking index %s, got %s", i, want, records[i].TrackingIndex)
		}
		if seen[records[i].ID] {
			t.Errorf("duplicate id %s", records[i].ID)
		}
		seen[records[i].ID] = true
	}
}

func TestIngestBatch_UnknownKind(t *testing.T) {
	st := inmemory.New()
	p := New(st, &stubEmbedder{vector: []float32{1}})

	_, err := p.IngestBatch(context.Background(), []map[string]string{ticketRaw("T001")}, record.Kind("bogus"))
	var unknown *record.UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}

	count, _ := st.Count(context.Background())
	if count != 0 {
		t.Errorf("expected no processing before kind validation, found %d records", count)
	}
}

func TestIngestBatch_StopsOnFirstFailure(t *testing.T) {
	st := inmemory.New()
	p := New(st, &stubEmbedder{vector: []float32{1}})

	bad := ticketRaw("T002")
	delete(bad, record.FieldDescription)

	raws := []map[string]string{ticketRaw("T001"), bad, ticketRaw("T003")}

	_, err := p.IngestBatch(context.Background(), raws, record.KindTicket)
	if err == nil {
		t.Fatal("expected error")
	}

	// The first record completed before the failure; the rest never ran.
	count, _ := st.Count(context.Background())
	if count != 1 {
		t.Errorf("expected exactly 1 record persisted, got %d", count)
	}
}

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.1"},
		{"1.9", "2.0"},
		{"2.8", "2.9"},
		{"10.0", "10.1"},
	}

	for _, tt := range tests {
		got, err := bumpVersion(tt.in)
		if err != nil {
			t.Fatalf("bumpVersion(%s) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("bumpVersion(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := bumpVersion("not-a-number"); err == nil {
		t.Error("expected error for unparseable version")
	}
}

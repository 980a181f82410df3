package memory

import (
	"context"
	"testing"
	"time"

	"github.com/oxproject/oxweb/internal/storage/accesslog"
)

func TestSaveAndRecent(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, id := range []string{"first", "second", "third"} {
		rec := &accesslog.Record{
			RequestID: id,
			Method:    "GET",
			Path:      "/x",
			Status:    200,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].RequestID != "third" || recent[1].RequestID != "second" {
		t.Fatalf("recent = %+v, want newest first", recent)
	}

	all, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d records", len(all))
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}
}

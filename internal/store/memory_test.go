package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/launchpress/contentsync/internal/domain"
)

func TestMemoryMappingStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMappingStore()

	if _, err := s.Find(ctx, domain.TypePosts, "1"); !errors.Is(err, domain.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}

	m := &domain.Mapping{
		LocalID:    "local-1",
		RemoteID:   "1",
		Type:       domain.TypePosts,
		LastSynced: time.Now().UTC(),
		Checksum:   "abc",
	}
	if err := s.Upsert(ctx, m); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Find(ctx, domain.TypePosts, "1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.LocalID != "local-1" || got.Checksum != "abc" {
		t.Errorf("unexpected mapping %+v", got)
	}

	// Upsert replaces on the same (type, remote_id) key.
	m.Checksum = "def"
	if err := s.Upsert(ctx, m); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, _ = s.Find(ctx, domain.TypePosts, "1")
	if got.Checksum != "def" {
		t.Errorf("upsert did not replace checksum, got %s", got.Checksum)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 mapping, got %d", len(all))
	}
}

func TestMemoryMappingStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMappingStore()

	_ = s.Upsert(ctx, &domain.Mapping{LocalID: "l", RemoteID: "r", Type: domain.TypePages, Checksum: "x"})

	got, _ := s.Find(ctx, domain.TypePages, "r")
	got.Checksum = "mutated"

	again, _ := s.Find(ctx, domain.TypePages, "r")
	if again.Checksum != "x" {
		t.Error("store leaked internal state to callers")
	}
}

func TestMemoryConflictStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConflictStore()

	c := &domain.Conflict{
		Type:       domain.TypePosts,
		ItemID:     "10",
		LocalData:  domain.Item{"title": "a"},
		RemoteData: domain.Item{"title": "b"},
		Timestamp:  time.Now().UTC(),
	}
	if err := s.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("Create did not assign an id")
	}

	open, err := s.FindOpen(ctx, domain.TypePosts, "10")
	if err != nil {
		t.Fatalf("FindOpen: %v", err)
	}
	if open.ID != c.ID {
		t.Errorf("FindOpen returned wrong conflict %s", open.ID)
	}

	if err := s.MarkResolved(ctx, c.ID, domain.ResolutionRemote); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}

	// Resolution is exclusive: a second attempt must fail, never overwrite.
	if err := s.MarkResolved(ctx, c.ID, domain.ResolutionLocal); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	got, _ := s.Get(ctx, c.ID)
	if !got.Resolved || got.Resolution != domain.ResolutionRemote {
		t.Errorf("resolution overwritten: %+v", got)
	}

	if _, err := s.FindOpen(ctx, domain.TypePosts, "10"); !errors.Is(err, domain.ErrConflictNotFound) {
		t.Errorf("resolved conflict still reported open: %v", err)
	}

	if err := s.MarkResolved(ctx, "no-such-id", domain.ResolutionLocal); !errors.Is(err, domain.ErrConflictNotFound) {
		t.Errorf("expected ErrConflictNotFound, got %v", err)
	}
}

func TestMemoryConflictStoreListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConflictStore()

	for i := 0; i < 3; i++ {
		c := &domain.Conflict{
			Type:   domain.TypePages,
			ItemID: fmt.Sprintf("%d", i),
		}
		_ = s.Create(ctx, c)
		if i == 0 {
			_ = s.MarkResolved(ctx, c.ID, domain.ResolutionMerge)
		}
	}

	unresolved := false
	open, err := s.List(ctx, &unresolved)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("expected 2 open conflicts, got %d", len(open))
	}

	resolved := true
	done, _ := s.List(ctx, &resolved)
	if len(done) != 1 {
		t.Errorf("expected 1 resolved conflict, got %d", len(done))
	}

	all, _ := s.List(ctx, nil)
	if len(all) != 3 {
		t.Errorf("expected 3 conflicts, got %d", len(all))
	}
}

func TestMemoryAuditLogBounded(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryAuditLog()

	total := MaxLogEntries + 150
	for i := 0; i < total; i++ {
		err := l.Append(ctx, &domain.LogEntry{
			Type:    domain.TypePosts,
			Action:  "sync",
			Status:  domain.LogSuccess,
			Details: map[string]any{"n": i},
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	entries, err := l.Query(ctx, LogFilter{Limit: MaxLogEntries})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != MaxLogEntries {
		t.Fatalf("expected %d entries, got %d", MaxLogEntries, len(entries))
	}

	// Newest first: the last append wins position zero, the oldest kept
	// entry is total-MaxLogEntries.
	if entries[0].Details["n"] != total-1 {
		t.Errorf("newest entry is %v, want %d", entries[0].Details["n"], total-1)
	}
	if entries[len(entries)-1].Details["n"] != total-MaxLogEntries {
		t.Errorf("oldest kept entry is %v, want %d",
			entries[len(entries)-1].Details["n"], total-MaxLogEntries)
	}
}

func TestMemoryAuditLogQueryFilters(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryAuditLog()

	_ = l.Append(ctx, &domain.LogEntry{Type: domain.TypePosts, Action: "sync", Status: domain.LogSuccess})
	_ = l.Append(ctx, &domain.LogEntry{Type: domain.TypePages, Action: "sync", Status: domain.LogFailed})
	_ = l.Append(ctx, &domain.LogEntry{Type: domain.TypePosts, Action: "sync", Status: domain.LogConflict})

	tests := []struct {
		name   string
		filter LogFilter
		want   int
	}{
		{"by type", LogFilter{Type: domain.TypePosts}, 2},
		{"by status", LogFilter{Status: domain.LogFailed}, 1},
		{"type and status", LogFilter{Type: domain.TypePosts, Status: domain.LogSuccess}, 1},
		{"limit", LogFilter{Limit: 2}, 2},
		{"no filter", LogFilter{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if s.IsInitialized() {
		t.Fatal("fresh database must not be initialized")
	}

	if err := s.ReplaceAll(sampleSnapshot()); err != nil {
		t.Fatalf("replace-all returned error: %v", err)
	}
	if !s.IsInitialized() {
		t.Fatal("expected initialized after replace-all")
	}

	flag, ok := s.Flag("new-dashboard")
	if !ok || !flag.On || flag.Version != 2 {
		t.Fatalf("unexpected flag: %+v (present=%v)", flag, ok)
	}
	seg, ok := s.Segment("beta-users")
	if !ok || len(seg.Included) != 2 {
		t.Fatalf("unexpected segment: %+v (present=%v)", seg, ok)
	}
}

func TestSQLiteStoreRestoresAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.ReplaceAll(sampleSnapshot()); err != nil {
		t.Fatalf("replace-all returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	reopened, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	if !reopened.IsInitialized() {
		t.Fatal("reopened store must report initialized")
	}
	if got := reopened.AllFlags(); len(got) != 2 {
		t.Fatalf("expected 2 restored flags, got %d", len(got))
	}
	if got := reopened.AllSegments(); len(got) != 1 {
		t.Fatalf("expected 1 restored segment, got %d", len(got))
	}
}

func TestSQLiteStoreReplaceAllDropsStaleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if err := s.ReplaceAll(sampleSnapshot()); err != nil {
		t.Fatalf("replace-all returned error: %v", err)
	}
	next := domain.NewSnapshot(map[string]domain.Flag{
		"only-flag": {Key: "only-flag", Version: 1},
	}, nil)
	if err := s.ReplaceAll(next); err != nil {
		t.Fatalf("replace-all returned error: %v", err)
	}

	if got := s.AllFlags(); len(got) != 1 {
		t.Fatalf("expected 1 flag after replacement, got %d", len(got))
	}
	if got := s.AllSegments(); len(got) != 0 {
		t.Fatalf("expected segments cleared, got %d", len(got))
	}
}

func TestSQLiteStoreEmptySnapshotStillInitializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if err := s.ReplaceAll(domain.NewSnapshot(nil, nil)); err != nil {
		t.Fatalf("replace-all returned error: %v", err)
	}
	if !s.IsInitialized() {
		t.Fatal("an empty snapshot still initializes the store")
	}
}

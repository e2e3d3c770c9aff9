package history_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/history"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newDiskStore(t *testing.T) (*history.Store, history.Backend) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	backend, err := history.NewDiskBackend("")
	if err != nil {
		t.Fatalf("NewDiskBackend: %v", err)
	}
	return history.NewStore(backend, quiet, history.WithClock(fixedClock())), backend
}

func TestRecordEvictsOldest(t *testing.T) {
	store := history.NewStore(nil, quiet, history.WithClock(fixedClock()))
	for i := 1; i <= 11; i++ {
		store.Record(fmt.Sprintf("text%d", i), correction.NewResult("", "", nil))
	}

	entries := store.Entries()
	if len(entries) != history.Capacity {
		t.Fatalf("len: got %d, want %d", len(entries), history.Capacity)
	}
	for i, e := range entries {
		want := fmt.Sprintf("text%d", 11-i)
		if e.SourceText != want {
			t.Errorf("entries[%d]: got %q, want %q", i, e.SourceText, want)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp >= entries[i-1].Timestamp {
			t.Errorf("entries not most-recent-first at %d", i)
		}
	}
}

func TestDiskRoundTrip(t *testing.T) {
	store, backend := newDiskStore(t)
	res := correction.NewResult("I like the cat.", "One typo.", correction.Set{
		{OriginalSpan: "teh", SuggestedSpan: "the", Rationale: "Typo.", Category: correction.CategorySpelling, Label: "spelling"},
	})
	entry, snap := store.Record("I like teh cat.", res)
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := history.NewStore(backend, quiet)
	reloaded.Load()
	got, ok := reloaded.Find(entry.ID[:6])
	if !ok {
		t.Fatalf("entry %s not found after reload", entry.ID)
	}
	text, gotRes := history.Select(got)
	if text != "I like teh cat." {
		t.Errorf("SourceText: got %q", text)
	}
	if gotRes.CorrectedFullText != res.CorrectedFullText || gotRes.IsFullyCorrect || len(gotRes.Corrections) != 1 {
		t.Errorf("Result: got %+v", gotRes)
	}
	if gotRes.Corrections[0] != res.Corrections[0] {
		t.Errorf("Correction: got %+v, want %+v", gotRes.Corrections[0], res.Corrections[0])
	}
	if got.Timestamp != entry.Timestamp {
		t.Errorf("Timestamp: got %d, want %d", got.Timestamp, entry.Timestamp)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, _ := newDiskStore(t)
	store.Load()
	if store.Len() != 0 {
		t.Errorf("expected empty history, got %d", store.Len())
	}
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	backend, err := history.NewDiskBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := backend.Load(); err == nil {
		t.Error("backend should report the parse error")
	}

	store := history.NewStore(backend, quiet)
	store.Load()
	if store.Len() != 0 {
		t.Errorf("corrupt history must load as empty, got %d", store.Len())
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	backend, err := history.NewDiskBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := backend.Load(); !errors.Is(err, history.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadNormalizesStoredResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	data := `{"version":1,"entries":[{"id":"a","timestamp":1,"source_text":"teh",` +
		`"result":{"corrected_full_text":"the","is_fully_correct":true,` +
		`"corrections":[{"original_span":"teh","suggested_span":"the","category":"spelling"}]}}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	backend, _ := history.NewDiskBackend(path)
	store := history.NewStore(backend, quiet)
	store.Load()

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("len: got %d", len(entries))
	}
	if entries[0].Result.IsFullyCorrect {
		t.Error("IsFullyCorrect must be recomputed from the stored corrections")
	}
}

func TestOlderSnapshotNeverOverwritesNewer(t *testing.T) {
	store, backend := newDiskStore(t)
	_, older := store.Record("first", correction.NewResult("", "", nil))
	_, newer := store.Record("second", correction.NewResult("", "", nil))

	// Saves complete out of order.
	if err := store.Save(newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}
	if err := store.Save(older); err != nil {
		t.Fatalf("Save older: %v", err)
	}

	entries, err := backend.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 || entries[0].SourceText != "second" {
		t.Errorf("persisted state regressed: %+v", entries)
	}
}

func TestClearPersists(t *testing.T) {
	store, backend := newDiskStore(t)
	_, snap := store.Record("x", correction.NewResult("", "", nil))
	if err := store.Save(snap); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(store.Clear()); err != nil {
		t.Fatal(err)
	}
	entries, err := backend.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history on disk, got %d", len(entries))
	}
}

func TestFindRequiresPrefix(t *testing.T) {
	store := history.NewStore(nil, quiet)
	store.Record("x", correction.NewResult("", "", nil))
	if _, ok := store.Find(""); ok {
		t.Error("empty prefix must not match")
	}
}

// Feature: proofread, Property 6: History never exceeds capacity and keeps the newest
func TestHistoryBoundedMostRecentFirst(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		store := history.NewStore(nil, quiet, history.WithClock(fixedClock()))
		for i := 0; i < n; i++ {
			store.Record(fmt.Sprintf("t%d", i), correction.NewResult("", "", nil))
		}
		entries := store.Entries()
		want := n
		if want > history.Capacity {
			want = history.Capacity
		}
		if len(entries) != want {
			t.Fatalf("len: got %d, want %d", len(entries), want)
		}
		for i, e := range entries {
			if e.SourceText != fmt.Sprintf("t%d", n-1-i) {
				t.Fatalf("entries[%d] = %q", i, e.SourceText)
			}
		}
	})
}

// Feature: proofread, Property 7: Persisted history survives a reload unchanged
func TestHistoryPersistenceRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	textGen := rapid.StringMatching(`[a-zA-Z .,ជួយខ្ញុំ]{1,30}`)

	rapid.Check(t, func(t *rapid.T) {
		backend, err := history.NewDiskBackend("")
		if err != nil {
			t.Fatalf("NewDiskBackend: %v", err)
		}
		store := history.NewStore(backend, quiet)
		store.Load()
		n := rapid.IntRange(1, 5).Draw(t, "n")
		var snap history.Snapshot
		for i := 0; i < n; i++ {
			_, snap = store.Record(textGen.Draw(t, "source"), correction.NewResult(textGen.Draw(t, "fixed"), "", nil))
		}
		if err := store.Save(snap); err != nil {
			t.Fatalf("Save: %v", err)
		}

		// A fresh backend has no generation memory, like a new process.
		fresh, err := history.NewDiskBackend("")
		if err != nil {
			t.Fatal(err)
		}
		loaded, err := fresh.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		want := store.Entries()
		if len(loaded) != len(want) {
			t.Fatalf("len: got %d, want %d", len(loaded), len(want))
		}
		for i := range want {
			if loaded[i].ID != want[i].ID || loaded[i].SourceText != want[i].SourceText || loaded[i].Timestamp != want[i].Timestamp {
				t.Fatalf("entries[%d]: got %+v, want %+v", i, loaded[i], want[i])
			}
		}
	})
}

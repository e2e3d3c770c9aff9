package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/session"
)

func startWatch(t *testing.T, path string, sess *session.Session) (<-chan Change, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Change, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, sess, func(c Change) { changes <- c }, nil)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Watch did not return after cancel")
		}
	})
	// Give the watcher time to register before the test writes.
	time.Sleep(100 * time.Millisecond)
	return changes, cancel
}

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestWatchFeedsEditsIntoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.txt")
	if err := os.WriteFile(path, []byte("I like teh cat."), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := session.New("I like teh cat.", session.Policy{StaleThreshold: 0})
	sess.Restore("I like teh cat.", correction.NewResult("I like the cat.", "", correction.Set{
		{OriginalSpan: "teh", SuggestedSpan: "the", Category: correction.CategorySpelling},
	}))

	changes, _ := startWatch(t, path, sess)

	if err := os.WriteFile(path, []byte("I like teh dog."), 0o644); err != nil {
		t.Fatal(err)
	}
	c := waitChange(t, changes)
	if c.Text != "I like teh dog." {
		t.Errorf("Text: got %q", c.Text)
	}
	if !c.Dropped {
		t.Error("expected corrections to be dropped under the strict policy")
	}
	if sess.Buffer() != "I like teh dog." {
		t.Errorf("session buffer: got %q", sess.Buffer())
	}
	if len(sess.Corrections()) != 0 {
		t.Errorf("expected empty set, got %d", len(sess.Corrections()))
	}
}

func TestWatchFollowsRenameSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.txt")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := session.New("one", session.Policy{StaleThreshold: session.DefaultStaleThreshold})

	changes, _ := startWatch(t, path, sess)

	tmp := filepath.Join(dir, "draft.txt.swp")
	if err := os.WriteFile(tmp, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	c := waitChange(t, changes)
	if c.Text != "two" {
		t.Errorf("Text: got %q, want %q", c.Text, "two")
	}
}

func TestWatchMissingFile(t *testing.T) {
	sess := session.New("", session.Policy{})
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), sess, nil, nil)
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// memStore is an in-memory LedgerStore that can be told to fail
type memStore struct {
	list  []Highscore
	saves int
	fail  error
}

func (m *memStore) LoadHighscores() ([]Highscore, error) {
	out := make([]Highscore, len(m.list))
	copy(out, m.list)
	return out, nil
}

func (m *memStore) SaveHighscores(list []Highscore) error {
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.list = make([]Highscore, len(list))
	copy(m.list, list)
	return nil
}

func newTestLedger(t *testing.T, store LedgerStore) *Ledger {
	t.Helper()
	l, err := NewLedger(store)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	l.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	return l
}

func TestLedgerKeepsTopTen(t *testing.T) {
	store := &memStore{}
	l := newTestLedger(t, store)

	for i := 1; i <= 11; i++ {
		if _, err := l.Add(fmt.Sprintf("p%d", i), i*10); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	list := l.List()
	if len(list) != maxHighscores {
		t.Fatalf("expected %d entries, got %d", maxHighscores, len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].TotalKills < list[i].TotalKills {
			t.Fatalf("list not descending at %d: %v", i, list)
		}
	}
	if list[0].TotalKills != 110 || list[9].TotalKills != 20 {
		t.Errorf("expected 110..20, got %d..%d", list[0].TotalKills, list[9].TotalKills)
	}
	if len(store.list) != maxHighscores {
		t.Errorf("expected store to hold %d entries, got %d", maxHighscores, len(store.list))
	}
}

func TestLedgerTiesKeepInsertionOrder(t *testing.T) {
	l := newTestLedger(t, &memStore{})
	l.Add("first", 5)
	l.Add("second", 5)
	l.Add("top", 9)
	l.Add("third", 5)

	want := []string{"top", "first", "second", "third"}
	list := l.List()
	for i, name := range want {
		if list[i].PlayerName != name {
			t.Errorf("position %d: expected %s, got %s", i, name, list[i].PlayerName)
		}
	}
}

func TestLedgerRejectsLowScoreWhenFull(t *testing.T) {
	store := &memStore{}
	l := newTestLedger(t, store)
	for i := 0; i < maxHighscores; i++ {
		l.Add("p", 10)
	}
	if l.Qualifies(10) {
		t.Error("a score equal to the minimum should not qualify")
	}
	if !l.Qualifies(11) {
		t.Error("a score above the minimum should qualify")
	}
	saves := store.saves
	added, err := l.Add("late", 10)
	if err != nil || added {
		t.Errorf("expected score rejected, got added=%v err=%v", added, err)
	}
	if store.saves != saves {
		t.Error("rejected score should not be persisted")
	}
}

func TestLedgerNameValidation(t *testing.T) {
	l := newTestLedger(t, &memStore{})
	if _, err := l.Add("   ", 5); err != ErrNameRequired {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	l.Add("  averyveryverylongplayername ", 5)
	got := l.List()[0].PlayerName
	if len(got) != maxNameLen || got != "averyveryverylon" {
		t.Errorf("expected trimmed and truncated name, got %q", got)
	}
}

func TestLedgerTruncatesMultiByteNames(t *testing.T) {
	l := newTestLedger(t, &memStore{})
	name := strings.Repeat("€", maxNameLen+2)
	if _, err := l.Add(name, 5); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := l.List()[0].PlayerName
	if !utf8.ValidString(got) {
		t.Fatalf("stored name is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("€", maxNameLen); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLedgerCreatedAtFormat(t *testing.T) {
	l := newTestLedger(t, &memStore{})
	l.Add("p", 1)
	if got := l.List()[0].CreatedAt; got != "24/03/09_14:05" {
		t.Errorf("expected 24/03/09_14:05, got %s", got)
	}
}

func TestLedgerPersistFailureKeepsList(t *testing.T) {
	store := &memStore{}
	l := newTestLedger(t, store)
	l.Add("kept", 3)

	store.fail = errors.New("disk full")
	added, err := l.Add("lost", 50)
	if err == nil || added {
		t.Fatalf("expected failure, got added=%v err=%v", added, err)
	}
	if !errors.Is(err, store.fail) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	list := l.List()
	if len(list) != 1 || list[0].PlayerName != "kept" {
		t.Errorf("list changed after failed save: %v", list)
	}
}

func TestLedgerLoadsSortedAndTruncated(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 12; i++ {
		store.list = append(store.list, Highscore{PlayerName: fmt.Sprintf("p%d", i), TotalKills: i})
	}
	l := newTestLedger(t, store)
	list := l.List()
	if len(list) != maxHighscores || list[0].TotalKills != 11 {
		t.Errorf("expected sorted top 10, got %v", list)
	}
}

func TestLedgerReset(t *testing.T) {
	store := &memStore{}
	l := newTestLedger(t, store)
	l.Add("p", 1)
	if err := l.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(l.List()) != 0 || len(store.list) != 0 {
		t.Error("expected empty list after reset")
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "highscores.json"))
	list, err := fs.LoadHighscores()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty list, got %v", list)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "highscores.json")
	l := newTestLedger(t, NewFileStore(path))
	l.Add("alice", 12)
	l.Add("bob", 30)

	// A second ledger over the same file sees the same list
	l2 := newTestLedger(t, NewFileStore(path))
	list := l2.List()
	if len(list) != 2 || list[0].PlayerName != "bob" || list[1].TotalKills != 12 {
		t.Errorf("unexpected reloaded list %v", list)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the highscore file, found %d entries", len(entries))
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "highscores.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := NewLedger(NewFileStore(path)); err == nil {
		t.Error("expected error for corrupt file")
	}
}

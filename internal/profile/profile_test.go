package profile

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) *BoltStore {
	t.Helper()
	return NewBoltStore(filepath.Join(t.TempDir(), "state", "profile.db"))
}

func TestBoltStoreUserName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	name, err := s.UserName(ctx)
	if err != nil || name != "" {
		t.Fatalf("empty store: %q, %v", name, err)
	}

	if err := s.SetUserName(ctx, "  Sam \n"); err != nil {
		t.Fatalf("SetUserName: %v", err)
	}
	if name, _ := s.UserName(ctx); name != "Sam" {
		t.Fatalf("name = %q", name)
	}

	if err := s.SetUserName(ctx, "   "); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestBoltStoreLastRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, ok, err := s.LastRun(ctx); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	want := Run{ID: "run-1", At: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), Events: 2}
	if err := s.RecordRun(ctx, want); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	got, ok, err := s.LastRun(ctx)
	if err != nil || !ok {
		t.Fatalf("LastRun: ok=%v err=%v", ok, err)
	}
	if got.ID != want.ID || !got.At.Equal(want.At) || got.Events != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestBoltStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newStore(t).UserName(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

type memStore struct {
	name   string
	getErr error
	setErr error
}

func (m *memStore) UserName(context.Context) (string, error) { return m.name, m.getErr }

func (m *memStore) SetUserName(_ context.Context, name string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.name = name
	return nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("stored name wins", func(t *testing.T) {
		var out bytes.Buffer
		name, err := Resolve(ctx, &memStore{name: "Sam"}, strings.NewReader("Other\n"), &out)
		if err != nil || name != "Sam" || out.Len() != 0 {
			t.Fatalf("name=%q err=%v out=%q", name, err, out.String())
		}
	})

	t.Run("prompts and stores", func(t *testing.T) {
		store := &memStore{}
		var out bytes.Buffer
		name, err := Resolve(ctx, store, strings.NewReader("  Jo\n"), &out)
		if err != nil || name != "Jo" || store.name != "Jo" {
			t.Fatalf("name=%q err=%v stored=%q", name, err, store.name)
		}
		if !strings.Contains(out.String(), NamePrompt) {
			t.Errorf("prompt missing: %q", out.String())
		}
	})

	t.Run("answer without newline", func(t *testing.T) {
		name, err := Resolve(ctx, &memStore{}, strings.NewReader("Kim"), nil)
		if err != nil || name != "Kim" {
			t.Fatalf("name=%q err=%v", name, err)
		}
	})

	t.Run("no reader", func(t *testing.T) {
		name, err := Resolve(ctx, &memStore{}, nil, nil)
		if err != nil || name != "" {
			t.Fatalf("name=%q err=%v", name, err)
		}
	})

	t.Run("read error falls through to prompt", func(t *testing.T) {
		name, err := Resolve(ctx, &memStore{getErr: errors.New("locked")}, strings.NewReader("Ana\n"), nil)
		if err != nil || name != "Ana" {
			t.Fatalf("name=%q err=%v", name, err)
		}
	})

	t.Run("save error keeps answer", func(t *testing.T) {
		name, err := Resolve(ctx, &memStore{setErr: errors.New("readonly")}, strings.NewReader("Lee\n"), nil)
		if err != nil || name != "Lee" {
			t.Fatalf("name=%q err=%v", name, err)
		}
	})
}

// Package profile keeps the little state the briefing remembers between runs:
// the user's name and the last completed run.
package profile

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	appLog "daybrief/internal/log"
)

const (
	rootBucket = "profile"
	keyName    = "user_name"
	keyLastRun = "last_run"
)

// NamePrompt is asked when no name is stored yet.
const NamePrompt = "What's your name? "

// Run records one completed briefing.
type Run struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Events int       `json:"events"`
}

// Store persists the user profile.
type Store interface {
	UserName(ctx context.Context) (string, error)
	SetUserName(ctx context.Context, name string) error
}

// BoltStore is a Store backed by a bbolt file. The database is opened per
// operation so concurrent processes only contend while a call is running.
type BoltStore struct {
	path    string
	timeout time.Duration
}

// NewBoltStore returns a store for the database at path.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path, timeout: 2 * time.Second}
}

func (s *BoltStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("could not open db %s: %w", s.path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(rootBucket)); err != nil {
			return fmt.Errorf("unable to create root bucket %s: %w", rootBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *BoltStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var val []byte
	err = db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(rootBucket)).Get([]byte(key)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val, err
}

func (s *BoltStore) put(ctx context.Context, key string, val []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(rootBucket)).Put([]byte(key), val)
	})
}

// UserName returns the stored name, or "" if none is stored.
func (s *BoltStore) UserName(ctx context.Context) (string, error) {
	v, err := s.get(ctx, keyName)
	if err != nil {
		return "", fmt.Errorf("load user name: %w", err)
	}
	return string(v), nil
}

// SetUserName stores name after trimming surrounding whitespace.
func (s *BoltStore) SetUserName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("user name is empty")
	}
	if err := s.put(ctx, keyName, []byte(name)); err != nil {
		return fmt.Errorf("store user name: %w", err)
	}
	return nil
}

// LastRun returns the most recently recorded run. ok is false if none exists.
func (s *BoltStore) LastRun(ctx context.Context) (run Run, ok bool, err error) {
	v, err := s.get(ctx, keyLastRun)
	if err != nil || v == nil {
		return Run{}, false, err
	}
	if err := json.Unmarshal(v, &run); err != nil {
		return Run{}, false, fmt.Errorf("decode last run: %w", err)
	}
	return run, true, nil
}

// RecordRun replaces the last run.
func (s *BoltStore) RecordRun(ctx context.Context, run Run) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.put(ctx, keyLastRun, raw)
}

// Resolve returns the stored user name. When none can be read and in is
// non-nil, it prompts on out, reads one line from in and stores the answer.
// Store failures are logged; only a failed read from in is returned.
func Resolve(ctx context.Context, store Store, in io.Reader, out io.Writer) (string, error) {
	name, err := store.UserName(ctx)
	if err != nil {
		appLog.Warn("could not read user name", "error", err)
	}
	if name != "" || in == nil {
		return name, nil
	}

	if out != nil {
		fmt.Fprintln(out, "Hi there! I don't know your name yet.")
		fmt.Fprint(out, NamePrompt)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read name: %w", err)
	}
	name = strings.TrimSpace(line)
	if name == "" {
		return "", nil
	}

	if err := store.SetUserName(ctx, name); err != nil {
		appLog.Warn("could not save user name", "error", err)
	} else if out != nil {
		fmt.Fprintf(out, "Nice to meet you, %s! I'll remember that.\n", name)
	}
	return name, nil
}

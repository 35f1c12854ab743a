package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

// FileIndex is a JSON-file backed DedupIndex: place_id -> fingerprints.
type FileIndex struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

// NewFileIndex loads path if it exists. A missing, empty or unreadable file
// yields an empty index.
func NewFileIndex(path string) *FileIndex {
	idx := &FileIndex{
		path: path,
		lock: flock.New(path + ".lock"),
		seen: make(map[string]map[string]struct{}),
	}
	if err := idx.load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("dedup cache unreadable, starting empty")
		idx.seen = make(map[string]map[string]struct{})
	}
	return idx
}

func (x *FileIndex) FilterNew(ctx context.Context, reviews []domain.ReviewRecord, placeID string) ([]domain.ReviewRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	unlock, err := x.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	set, ok := x.seen[placeID]
	if !ok {
		set = make(map[string]struct{})
		x.seen[placeID] = set
	}

	var fresh []domain.ReviewRecord
	var added []string
	for _, r := range reviews {
		fp := Fingerprint(r)
		if _, dup := set[fp]; dup {
			continue
		}
		set[fp] = struct{}{}
		added = append(added, fp)
		fresh = append(fresh, r)
	}

	if len(added) > 0 {
		if err := x.save(); err != nil {
			// keep memory in step with disk
			for _, fp := range added {
				delete(set, fp)
			}
			if !ok {
				delete(x.seen, placeID)
			}
			return nil, fmt.Errorf("persist dedup cache: %w", err)
		}
	}
	observability.ObserveDedup("file", len(fresh), len(reviews)-len(fresh))
	return fresh, nil
}

func (x *FileIndex) Reset(ctx context.Context, placeID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	unlock, err := x.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	prev, ok := x.seen[placeID]
	if !ok {
		return nil
	}
	delete(x.seen, placeID)
	if err := x.save(); err != nil {
		x.seen[placeID] = prev
		return fmt.Errorf("persist dedup cache: %w", err)
	}
	return nil
}

func (x *FileIndex) ResetAll(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	unlock, err := x.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	prev := x.seen
	x.seen = make(map[string]map[string]struct{})
	if err := x.save(); err != nil {
		x.seen = prev
		return fmt.Errorf("persist dedup cache: %w", err)
	}
	return nil
}

func (x *FileIndex) Count(ctx context.Context, placeID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.lock.RLock(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return len(x.seen[placeID]), nil
		}
		return 0, fmt.Errorf("lock dedup cache: %w", err)
	}
	defer func() { _ = x.lock.Unlock() }()
	x.refresh()
	return len(x.seen[placeID]), nil
}

// acquire takes the cross-process file lock and reloads the index so that
// writes by other processes are merged before this one mutates it.
// Caller holds x.mu.
func (x *FileIndex) acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := x.lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock dedup cache: %w", err)
	}
	x.refresh()
	return func() { _ = x.lock.Unlock() }, nil
}

// refresh replaces the in-memory index with the file contents. An unreadable
// file keeps the current state.
func (x *FileIndex) refresh() {
	prev := x.seen
	x.seen = make(map[string]map[string]struct{})
	if err := x.load(); err != nil {
		log.Warn().Err(err).Str("path", x.path).Msg("dedup cache unreadable, keeping in-memory state")
		x.seen = prev
	}
}

func (x *FileIndex) load() error {
	data, err := os.ReadFile(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read dedup cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse dedup cache: %w", err)
	}
	for place, fps := range raw {
		set := make(map[string]struct{}, len(fps))
		for _, fp := range fps {
			set[fp] = struct{}{}
		}
		x.seen[place] = set
	}
	return nil
}

// save writes the whole index atomically. Caller holds x.mu and the file lock.
func (x *FileIndex) save() error {
	raw := make(map[string][]string, len(x.seen))
	for place, set := range x.seen {
		fps := make([]string, 0, len(set))
		for fp := range set {
			fps = append(fps, fp)
		}
		sort.Strings(fps)
		raw[place] = fps
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup cache: %w", err)
	}

	tmp := x.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

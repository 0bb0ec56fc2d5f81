package client

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// ToggleState is the outcome of one optimistic like/unlike transition.
type ToggleState int

const (
	// TogglePending means the flip was applied locally but the server
	// call has not resolved yet.
	TogglePending ToggleState = iota
	// ToggleConfirmed means the server accepted the flip.
	ToggleConfirmed
	// ToggleRolledBack means the server call failed and the local flip
	// was undone.
	ToggleRolledBack
)

func (s ToggleState) String() string {
	switch s {
	case TogglePending:
		return "pending"
	case ToggleConfirmed:
		return "confirmed"
	case ToggleRolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// LikedStore persists the liked-set membership.
type LikedStore interface {
	Load() (map[string]bool, error)
	Save(map[string]bool) error
}

// LikedSet tracks which resources this client marked helpful. It is not
// authoritative; the server counter is. Toggles apply optimistically and
// roll back when the confirming network call fails.
type LikedSet struct {
	mu    sync.Mutex
	store LikedStore
	liked map[string]bool
}

func NewLikedSet(store LikedStore) (*LikedSet, error) {
	liked, err := store.Load()
	if err != nil {
		return nil, err
	}
	if liked == nil {
		liked = make(map[string]bool)
	}
	return &LikedSet{store: store, liked: liked}, nil
}

// Contains reports whether the resource is currently marked helpful.
func (s *LikedSet) Contains(resourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[resourceID]
}

// Len reports the current membership size.
func (s *LikedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.liked)
}

// Toggle flips membership for resourceID optimistically, persists the flip,
// then runs commit with the new liked value. A commit failure rolls the
// flip back and re-persists, so local state never drifts from what the
// server acknowledged. The returned liked value reflects the final state.
func (s *LikedSet) Toggle(ctx context.Context, resourceID string, commit func(ctx context.Context, liked bool) error) (bool, ToggleState, error) {
	s.mu.Lock()
	liked := !s.liked[resourceID]
	s.set(resourceID, liked)
	if err := s.store.Save(s.snapshot()); err != nil {
		// Undo the in-memory flip; nothing was sent yet
		s.set(resourceID, !liked)
		s.mu.Unlock()
		return !liked, ToggleRolledBack, err
	}
	s.mu.Unlock()

	if err := commit(ctx, liked); err != nil {
		s.mu.Lock()
		s.set(resourceID, !liked)
		if saveErr := s.store.Save(s.snapshot()); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
		s.mu.Unlock()
		return !liked, ToggleRolledBack, err
	}

	return liked, ToggleConfirmed, nil
}

// set must be called with the mutex held.
func (s *LikedSet) set(resourceID string, liked bool) {
	if liked {
		s.liked[resourceID] = true
	} else {
		delete(s.liked, resourceID)
	}
}

// snapshot must be called with the mutex held.
func (s *LikedSet) snapshot() map[string]bool {
	out := make(map[string]bool, len(s.liked))
	for id := range s.liked {
		out[id] = true
	}
	return out
}

// MemoryLikedStore keeps the liked-set in process memory.
type MemoryLikedStore struct {
	mu    sync.Mutex
	liked map[string]bool
}

func NewMemoryLikedStore() *MemoryLikedStore {
	return &MemoryLikedStore{}
}

func (s *MemoryLikedStore) Load() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.liked))
	for id := range s.liked {
		out[id] = true
	}
	return out, nil
}

func (s *MemoryLikedStore) Save(liked map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = liked
	return nil
}

// FileLikedStore persists the liked-set as a JSON file.
type FileLikedStore struct {
	mu   sync.Mutex
	path string
}

func NewFileLikedStore(path string) *FileLikedStore {
	return &FileLikedStore{path: path}
}

func (s *FileLikedStore) Load() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	var liked map[string]bool
	if err := json.Unmarshal(data, &liked); err != nil {
		return nil, err
	}
	return liked, nil
}

func (s *FileLikedStore) Save(liked map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(liked)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

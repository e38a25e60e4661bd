package pets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pintopics/api/internal/blob"
)

// SuppressionList holds terms that silence a whole message when any of them
// occurs as a substring of it.
type SuppressionList struct {
	store blob.Store

	mu    sync.RWMutex
	terms []string

	saveMu sync.Mutex
}

func NewSuppressionList(store blob.Store) *SuppressionList {
	return &SuppressionList{store: store}
}

// Load restores blacklist.json, starting empty when it is absent.
func (s *SuppressionList) Load(ctx context.Context) error {
	data, err := s.store.Get(ctx, SuppressionKey)
	if errors.Is(err, blob.ErrNotFound) {
		s.mu.Lock()
		s.terms = nil
		s.mu.Unlock()
		return s.Save(ctx)
	}
	if err != nil {
		return fmt.Errorf("load suppression list: %w: %w", ErrStorageUnavailable, err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", SuppressionKey, err)
	}
	terms := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, term := range raw {
		term = Normalize(term)
		if _, dup := seen[term]; dup || term == "" {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	s.mu.Lock()
	s.terms = terms
	s.mu.Unlock()
	return nil
}

func (s *SuppressionList) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := marshalJSON(s.Terms())
	if err != nil {
		return fmt.Errorf("encode %s: %w", SuppressionKey, err)
	}
	if err := s.store.Put(ctx, SuppressionKey, data, "application/json"); err != nil {
		return fmt.Errorf("save suppression list: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// ContainsAny reports whether any term is a substring of the lowercased text.
func (s *SuppressionList) ContainsAny(text string) bool {
	lowered := strings.ToLower(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, term := range s.terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// Add returns false without writing when the term is already present.
func (s *SuppressionList) Add(ctx context.Context, term string) (bool, error) {
	term = Normalize(term)
	if term == "" {
		return false, ErrEmptyTerm
	}

	s.mu.Lock()
	if s.indexLocked(term) >= 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.terms = append(s.terms, term)
	s.mu.Unlock()

	return true, s.Save(ctx)
}

// Remove returns false without writing when the term is not present.
func (s *SuppressionList) Remove(ctx context.Context, term string) (bool, error) {
	term = Normalize(term)
	if term == "" {
		return false, ErrEmptyTerm
	}

	s.mu.Lock()
	i := s.indexLocked(term)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.terms = append(s.terms[:i:i], s.terms[i+1:]...)
	s.mu.Unlock()

	return true, s.Save(ctx)
}

func (s *SuppressionList) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]string, 0, len(s.terms)), s.terms...)
}

func (s *SuppressionList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.terms)
}

func (s *SuppressionList) indexLocked(term string) int {
	for i, existing := range s.terms {
		if existing == term {
			return i
		}
	}
	return -1
}

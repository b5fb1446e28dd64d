package history

import (
	"context"
	"log"
	"sort"
	"sync"
)

// MemoryStore keeps history entries in memory with concurrency safety
type MemoryStore struct {
	entries    map[string]Entry
	order      []string // IDs in insertion order
	maxEntries int
	mux        sync.RWMutex
}

// NewMemoryStore creates an empty store. A positive maxEntries evicts the
// oldest entries once the store grows past it.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

// Add stores an entry
func (s *MemoryStore) Add(_ context.Context, entry Entry) (Entry, error) {
	entry, err := prepare(entry)
	if err != nil {
		return Entry{}, err
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry

	if s.maxEntries > 0 && len(s.order) > s.maxEntries {
		evict := s.order[:len(s.order)-s.maxEntries]
		for _, id := range evict {
			delete(s.entries, id)
		}
		s.order = append([]string(nil), s.order[len(evict):]...)
	}

	return entry, nil
}

// Get retrieves an entry by ID
func (s *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	if err := validateID(id); err != nil {
		return Entry{}, err
	}

	s.mux.RLock()
	defer s.mux.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// List returns matching entries, newest first
func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]Entry, error) {
	s.mux.RLock()
	matched := make([]Entry, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		entry := s.entries[s.order[i]]
		if opts.matches(entry) {
			matched = append(matched, entry)
		}
	}
	s.mux.RUnlock()

	// Insertion order is already close to time order; the stable sort only
	// fixes entries added with an explicit CreatedAt.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if opts.Skip >= len(matched) {
		return []Entry{}, nil
	}
	if opts.Skip > 0 {
		matched = matched[opts.Skip:]
	}
	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Delete removes an entry by ID
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every entry
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.entries = make(map[string]Entry)
	s.order = nil
	return nil
}

// Count returns the number of stored entries
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return int64(len(s.entries)), nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

// DisplayStoreInfo logs how many entries are held and which collections they target
func (s *MemoryStore) DisplayStoreInfo() error {
	s.mux.RLock()
	defer s.mux.RUnlock()

	log.Println("====== In-Memory History Information ======")
	log.Printf("Entries: %d", len(s.entries))
	if s.maxEntries > 0 {
		log.Printf("Max entries: %d", s.maxEntries)
	}

	if len(s.entries) == 0 {
		log.Println("History is empty")
		log.Println("===========================================")
		return nil
	}

	perCollection := make(map[string]int)
	unrecognized := 0
	for _, entry := range s.entries {
		if !entry.Recognized {
			unrecognized++
			continue
		}
		perCollection[entry.Collection]++
	}

	log.Printf("Unrecognized expressions: %d", unrecognized)
	log.Println("Collections:")
	for collection, count := range perCollection {
		log.Printf("  %s: %d expressions", collection, count)
	}
	log.Println("===========================================")
	return nil
}

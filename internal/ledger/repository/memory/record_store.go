package memory

import (
	"sync"
	"sync/atomic"

	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// RecordStore holds the active day's records. Writers are serialized by the
// mutex and publish a fresh slice through the atomic pointer; readers load
// the pointer and iterate without blocking, so a background task can count or
// look up records while a command mutates the list.
type RecordStore struct {
	mu      sync.Mutex
	records atomic.Pointer[[]*models.LinkRecord]
}

func NewRecordStore() *RecordStore {
	s := &RecordStore{}
	empty := make([]*models.LinkRecord, 0)
	s.records.Store(&empty)

	return s
}

func (s *RecordStore) Count() int {
	return len(*s.records.Load())
}

// Get returns the record at the 0-based index. Callers must treat the result
// as read-only; mutation goes through Update.
func (s *RecordStore) Get(index int) (*models.LinkRecord, bool) {
	records := *s.records.Load()
	if index < 0 || index >= len(records) {
		return nil, false
	}

	return records[index], true
}

// List returns the current immutable snapshot.
func (s *RecordStore) List() []*models.LinkRecord {
	return *s.records.Load()
}

// FindByURL returns the 0-based index of the record with the given URL.
func (s *RecordStore) FindByURL(url string) (int, bool) {
	for i, r := range *s.records.Load() {
		if r.URL == url {
			return i, true
		}
	}

	return -1, false
}

// Append adds a record at the end and returns its 0-based index.
func (s *RecordStore) Append(record *models.LinkRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.records.Load()
	next := make([]*models.LinkRecord, len(old), len(old)+1)
	copy(next, old)
	next = append(next, record)
	s.records.Store(&next)

	return len(next) - 1
}

// Update clones the record at index, applies fn to the clone and publishes a
// new snapshot containing it.
func (s *RecordStore) Update(index int, fn func(*models.LinkRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.records.Load()
	if index < 0 || index >= len(old) {
		return false
	}

	next := make([]*models.LinkRecord, len(old))
	copy(next, old)

	record := old[index].Clone()
	fn(record)
	next[index] = record

	s.records.Store(&next)

	return true
}

// Remove deletes the record at index. Later records shift down one position;
// callers must re-resolve display indices afterwards.
func (s *RecordStore) Remove(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.records.Load()
	if index < 0 || index >= len(old) {
		return false
	}

	next := make([]*models.LinkRecord, 0, len(old)-1)
	next = append(next, old[:index]...)
	next = append(next, old[index+1:]...)
	s.records.Store(&next)

	return true
}

// Replace swaps in a whole new list (snapshot load, day rollover).
func (s *RecordStore) Replace(records []*models.LinkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*models.LinkRecord, len(records))
	copy(next, records)
	s.records.Store(&next)
}

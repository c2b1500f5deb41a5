package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/ledger/repository/memory"
)

func TestRecordStore_AppendAndGet(t *testing.T) {
	store := memory.NewRecordStore()

	index := store.Append(&models.LinkRecord{URL: "https://example.com/a"})
	assert.Equal(t, 0, index)

	index = store.Append(&models.LinkRecord{URL: "https://example.com/b"})
	assert.Equal(t, 1, index)

	assert.Equal(t, 2, store.Count())

	record, ok := store.Get(0)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", record.URL)

	_, ok = store.Get(2)
	assert.False(t, ok)

	_, ok = store.Get(-1)
	assert.False(t, ok)
}

func TestRecordStore_FindByURL(t *testing.T) {
	store := memory.NewRecordStore()
	store.Append(&models.LinkRecord{URL: "https://example.com/a"})
	store.Append(&models.LinkRecord{URL: "https://example.com/b"})

	index, ok := store.FindByURL("https://example.com/b")
	require.True(t, ok)
	assert.Equal(t, 1, index)

	_, ok = store.FindByURL("https://example.com/missing")
	assert.False(t, ok)
}

func TestRecordStore_UpdateDoesNotTouchOldSnapshot(t *testing.T) {
	store := memory.NewRecordStore()
	store.Append(&models.LinkRecord{URL: "https://example.com/a", Title: "old"})

	before := store.List()

	ok := store.Update(0, func(r *models.LinkRecord) {
		r.Title = "new"
	})
	require.True(t, ok)

	assert.Equal(t, "old", before[0].Title, "a snapshot taken before the update stays frozen")

	record, _ := store.Get(0)
	assert.Equal(t, "new", record.Title)
}

func TestRecordStore_UpdateOutOfRange(t *testing.T) {
	store := memory.NewRecordStore()

	assert.False(t, store.Update(0, func(*models.LinkRecord) {}))
}

func TestRecordStore_Remove(t *testing.T) {
	store := memory.NewRecordStore()
	store.Append(&models.LinkRecord{URL: "https://example.com/a"})
	store.Append(&models.LinkRecord{URL: "https://example.com/b"})
	store.Append(&models.LinkRecord{URL: "https://example.com/c"})

	require.True(t, store.Remove(1))
	assert.Equal(t, 2, store.Count())

	record, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/c", record.URL)

	assert.False(t, store.Remove(5))
}

func TestRecordStore_Replace(t *testing.T) {
	store := memory.NewRecordStore()
	store.Append(&models.LinkRecord{URL: "https://example.com/a"})

	store.Replace(nil)
	assert.Equal(t, 0, store.Count())

	store.Replace([]*models.LinkRecord{
		{URL: "https://example.com/x"},
		{URL: "https://example.com/y"},
	})
	assert.Equal(t, 2, store.Count())
}

func TestRecordStore_ConcurrentReadersAndWriters(t *testing.T) {
	store := memory.NewRecordStore()

	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				store.Append(&models.LinkRecord{URL: fmt.Sprintf("https://example.com/%d-%d", w, i)})
				store.Update(0, func(r *models.LinkRecord) {
					r.Title = "touched"
				})
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				for _, record := range store.List() {
					_ = record.URL
				}

				store.Count()
				store.FindByURL("https://example.com/0-0")
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 400, store.Count())
}

package store

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// collection is the generic whole-array JSON collection underlying the
// typed calendar and bookmark stores. Every operation reads the full
// array, mutates it in memory, and writes the full array back; a mutex
// serializes the read-modify-write cycle so one mutation is in flight
// per collection at a time.
type collection[T any] struct {
	blobs *Blobs
	key   string
	mu    sync.Mutex

	// id returns a pointer to the record's ID field so Add can assign one.
	id func(*T) *string
}

func newCollection[T any](blobs *Blobs, key string, id func(*T) *string) *collection[T] {
	return &collection[T]{blobs: blobs, key: key, id: id}
}

// load decodes the current array. A missing key yields an empty slice;
// a corrupt blob is quarantined and also yields an empty slice, so reads
// never fail upward.
func (c *collection[T]) load() []T {
	raw, err := c.blobs.Get(c.key)
	if err != nil {
		log.Error().Err(err).Str("key", c.key).Msg("collection read failed")
		return nil
	}
	if raw == nil {
		return nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.blobs.Quarantine(c.key, raw, []byte("[]"))
		return nil
	}
	return items
}

// save writes the full array back. Write failures are logged, not
// propagated; the in-memory result is still returned to the caller.
func (c *collection[T]) save(items []T) {
	raw, err := json.Marshal(items)
	if err != nil {
		log.Error().Err(err).Str("key", c.key).Msg("collection encode failed")
		return
	}
	if err := c.blobs.Put(c.key, raw); err != nil {
		log.Error().Err(err).Str("key", c.key).Msg("collection write failed")
	}
}

// List returns a snapshot of the collection.
func (c *collection[T]) List() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Add assigns a fresh ID and appends the record.
func (c *collection[T]) Add(item T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	*c.id(&item) = uuid.NewString()
	items := append(c.load(), item)
	c.save(items)
	return item
}

// Update applies apply to the record with the given id. It returns the
// updated record and true, or the zero value and false when id is absent.
func (c *collection[T]) Update(id string, apply func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.load()
	for i := range items {
		if *c.id(&items[i]) == id {
			apply(&items[i])
			c.save(items)
			return items[i], true
		}
	}
	var zero T
	return zero, false
}

// Delete removes the record with the given id, reporting whether it existed.
// Deleting an absent id leaves the collection untouched.
func (c *collection[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.load()
	kept := items[:0]
	for i := range items {
		if *c.id(&items[i]) != id {
			kept = append(kept, items[i])
		}
	}
	if len(kept) == len(items) {
		return false
	}
	c.save(kept)
	return true
}

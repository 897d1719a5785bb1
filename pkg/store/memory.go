package store

import (
	"context"
	"sync"
)

// MemoryWriter is an in-process store used for dry runs and tests.
type MemoryWriter struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
	// Writes counts Upsert calls, successful or not.
	Writes int
	// Err, when set, is returned by every Upsert.
	Err error
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{docs: make(map[string]map[string]interface{})}
}

func (w *MemoryWriter) Upsert(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.Writes++
	if w.Err != nil {
		return w.Err
	}

	key := RedisKey(collection, id)
	stored, ok := w.docs[key]
	if !ok {
		stored = make(map[string]interface{}, len(doc))
		w.docs[key] = stored
	}
	for field, value := range doc {
		stored[field] = value
	}
	return nil
}

// Get returns a copy of the stored document.
func (w *MemoryWriter) Get(collection, id string) (map[string]interface{}, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	stored, ok := w.docs[RedisKey(collection, id)]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, true
}

func (w *MemoryWriter) Close() error {
	return nil
}

package blackboard

import (
	"sync"
	"time"
)

// Metadata records who wrote a value and when.
type Metadata struct {
	WriterRole string    `json:"writer_role"`
	Timestamp  time.Time `json:"timestamp"`
}

// Version is a single historical value of an entry.
type Version struct {
	Value    any      `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// Entry is one key on the board: the latest value, its metadata, and the
// full history of prior versions (oldest first).
type Entry struct {
	Key      string    `json:"key"`
	Value    any       `json:"value"`
	Metadata Metadata  `json:"metadata"`
	History  []Version `json:"history"`
}

// Board is a thread-safe scratchpad. The zero value is not usable; call New.
type Board struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// New creates an empty board.
func New() *Board {
	return &Board{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Set writes a value under key, recording the writer's role. Any existing
// value is pushed onto the entry's history before being replaced.
func (b *Board) Set(key string, value any, writerRole string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta := Metadata{WriterRole: writerRole, Timestamp: b.now()}

	entry, exists := b.entries[key]
	if !exists {
		b.entries[key] = &Entry{Key: key, Value: value, Metadata: meta}
		return
	}

	entry.History = append(entry.History, Version{Value: entry.Value, Metadata: entry.Metadata})
	entry.Value = value
	entry.Metadata = meta
}

// Get returns the latest value for key, or (nil, false) if the key has
// never been written.
func (b *Board) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[key]
	if !exists {
		return nil, false
	}
	return entry.Value, true
}

// Append adds a value to the list stored at key, creating the list if the
// key is empty. If the key holds a non-list value, that value becomes the
// first element of the new list (and the replacement is versioned like any
// other Set). Append is the accumulation primitive for sibling plan nodes
// writing sub-results under one shared key.
func (b *Board) Append(key string, value any, writerRole string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta := Metadata{WriterRole: writerRole, Timestamp: b.now()}

	entry, exists := b.entries[key]
	if !exists {
		b.entries[key] = &Entry{Key: key, Value: []any{value}, Metadata: meta}
		return
	}

	entry.History = append(entry.History, Version{Value: entry.Value, Metadata: entry.Metadata})

	if list, ok := entry.Value.([]any); ok {
		next := make([]any, len(list), len(list)+1)
		copy(next, list)
		entry.Value = append(next, value)
	} else {
		entry.Value = []any{entry.Value, value}
	}
	entry.Metadata = meta
}

// GetList returns the list stored at key, or nil if the key is empty.
// A non-list value is returned as a single-element list.
func (b *Board) GetList(key string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[key]
	if !exists {
		return nil
	}
	if list, ok := entry.Value.([]any); ok {
		out := make([]any, len(list))
		copy(out, list)
		return out
	}
	return []any{entry.Value}
}

// History returns the prior versions of key, oldest first. The latest value
// is not included; read it with Get.
func (b *Board) History(key string) []Version {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[key]
	if !exists {
		return nil
	}
	out := make([]Version, len(entry.History))
	copy(out, entry.History)
	return out
}

// Keys returns all keys currently on the board, in no particular order.
func (b *Board) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a copy of every entry keyed by name. Mutating the
// returned map does not affect the board. Entry histories are copied;
// values are shared (values on the board are treated as immutable).
func (b *Board) Snapshot() map[string]Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := make(map[string]Entry, len(b.entries))
	for k, entry := range b.entries {
		history := make([]Version, len(entry.History))
		copy(history, entry.History)
		snap[k] = Entry{
			Key:      entry.Key,
			Value:    entry.Value,
			Metadata: entry.Metadata,
			History:  history,
		}
	}
	return snap
}

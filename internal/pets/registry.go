package pets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"pintopics/api/internal/blob"
)

// Entry is a snapshot of one registered keyword.
type Entry struct {
	Name      string
	Emblem    string
	ItemCount int
	Cursor    int
}

// record is the pets.json shape of an entry.
type record struct {
	Emote string `json:"emote"`
	Limit int    `json:"limit"`
	Index int    `json:"index"`
}

// entry guards the rotation pair of one keyword with its own lock so that
// concurrent mentions advance the cursor atomically.
type entry struct {
	mu        sync.Mutex
	emblem    string
	itemCount int
	cursor    int
}

// Default is a keyword installed on first run.
type Default struct {
	Name   string
	Emblem string
}

// BuiltinDefaults seeds an empty bucket.
var BuiltinDefaults = []Default{
	{Name: "pinto", Emblem: "<:pintocool:1391935318797844500>"},
	{Name: "ellie", Emblem: "<:ellie:1399190760259194951>"},
	{Name: "murph", Emblem: "<:murph:1399190806018916403>"},
}

// Registry maps keywords to their emblem and rotation state. Every mutation
// other than cursor rotation is written through to the blob store.
type Registry struct {
	store         blob.Store
	defaultEmblem string
	defaults      []Default

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	saveMu sync.Mutex
}

func NewRegistry(store blob.Store, defaultEmblem string, defaults []Default) *Registry {
	return &Registry{
		store:         store,
		defaultEmblem: defaultEmblem,
		defaults:      defaults,
		entries:       make(map[string]*entry),
	}
}

func (r *Registry) DefaultEmblem() string {
	return r.defaultEmblem
}

// Load restores the registry from pets.json, installing and persisting the
// defaults when the document does not exist yet.
func (r *Registry) Load(ctx context.Context) error {
	data, err := r.store.Get(ctx, RegistryKey)
	if errors.Is(err, blob.ErrNotFound) {
		r.reset()
		for _, d := range r.defaults {
			r.insert(Normalize(d.Name), d.Emblem)
		}
		log.Printf("pets: %s not found, installed %d default keywords", RegistryKey, len(r.defaults))
		return r.Save(ctx)
	}
	if err != nil {
		return fmt.Errorf("load registry: %w: %w", ErrStorageUnavailable, err)
	}

	names, records, err := decodeRegistry(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", RegistryKey, err)
	}
	r.reset()
	for i, name := range names {
		e := r.insert(Normalize(name), records[i].Emote)
		e.itemCount = records[i].Limit
		e.cursor = records[i].Index
	}
	return nil
}

// Save writes the full registry snapshot in insertion order.
func (r *Registry) Save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	data, err := encodeRegistry(r.List())
	if err != nil {
		return fmt.Errorf("encode %s: %w", RegistryKey, err)
	}
	if err := r.store.Put(ctx, RegistryKey, data, "application/json"); err != nil {
		return fmt.Errorf("save registry: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Get is a case-insensitive lookup.
func (r *Registry) Get(name string) (Entry, bool) {
	name = Normalize(name)
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(name), true
}

// Upsert registers name when absent. An existing entry keeps its emblem.
// An empty emblem selects the default one.
func (r *Registry) Upsert(ctx context.Context, name, emblem string) (bool, error) {
	name = Normalize(name)
	if name == "" {
		return false, fmt.Errorf("keyword must not be empty")
	}
	if emblem == "" {
		emblem = r.defaultEmblem
	}

	r.mu.Lock()
	if _, ok := r.entries[name]; ok {
		r.mu.Unlock()
		return false, nil
	}
	r.insertLocked(name, emblem)
	r.mu.Unlock()

	return true, r.Save(ctx)
}

// SetEmblem creates or overwrites the emblem of name and persists.
func (r *Registry) SetEmblem(ctx context.Context, name, emblem string) error {
	name = Normalize(name)
	if name == "" {
		return fmt.Errorf("keyword must not be empty")
	}

	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = r.insertLocked(name, emblem)
	}
	r.mu.Unlock()

	e.mu.Lock()
	e.emblem = emblem
	e.mu.Unlock()

	return r.Save(ctx)
}

// List returns every entry in insertion order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].snapshot(name))
	}
	return out
}

// Names returns the registered keywords in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SetItemCount replaces the count and rewinds the cursor. It does not persist.
func (r *Registry) SetItemCount(name string, count int) bool {
	e := r.lookup(name)
	if e == nil {
		return false
	}
	e.mu.Lock()
	e.itemCount = count
	e.cursor = 0
	e.mu.Unlock()
	return true
}

// Advance rotates the cursor of name and returns the new index along with the
// entry it belongs to. A zero item count leaves the cursor untouched.
func (r *Registry) Advance(name string) (Entry, error) {
	name = Normalize(name)
	e := r.lookup(name)
	if e == nil {
		return Entry{}, ErrUnknownKeyword
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.itemCount == 0 {
		return Entry{Name: name, Emblem: e.emblem}, ErrNoMedia
	}
	// (cursor mod n) + 1 stays in [1, n] even if n shrank since the last call.
	e.cursor = (e.cursor % e.itemCount) + 1
	return Entry{Name: name, Emblem: e.emblem, ItemCount: e.itemCount, Cursor: e.cursor}, nil
}

func (r *Registry) lookup(name string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[Normalize(name)]
}

func (r *Registry) reset() {
	r.mu.Lock()
	r.entries = make(map[string]*entry)
	r.order = nil
	r.mu.Unlock()
}

func (r *Registry) insert(name, emblem string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e
	}
	return r.insertLocked(name, emblem)
}

func (r *Registry) insertLocked(name, emblem string) *entry {
	e := &entry{emblem: emblem}
	r.entries[name] = e
	r.order = append(r.order, name)
	return e
}

func (e *entry) snapshot(name string) Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Entry{Name: name, Emblem: e.emblem, ItemCount: e.itemCount, Cursor: e.cursor}
}

// encodeRegistry writes a JSON object whose key order follows entries.
func encodeRegistry(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalJSON(e.Name)
		if err != nil {
			return nil, err
		}
		value, err := marshalJSON(record{Emote: e.Emblem, Limit: e.ItemCount, Index: e.Cursor})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON encodes without HTML escaping so emote markup such as
// <:name:id> is stored verbatim.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeRegistry reads the object token by token to keep document order.
func decodeRegistry(data []byte) ([]string, []record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var names []string
	var records []record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected keyword, got %v", tok)
		}
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("keyword %s: %w", name, err)
		}
		names = append(names, name)
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	return names, records, nil
}

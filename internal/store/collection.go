package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Collection is the in-memory copy of one collection document. Reads share a
// read lock; Update holds the write lock across the whole read-modify-write
// and flushes the complete document to the backend before releasing it.
type Collection[T any] struct {
	mu      sync.RWMutex
	name    string
	backend Backend
	fix     func(*T)

	doc T
	raw []byte // last persisted encoding of doc
}

func newCollection[T any](name string, backend Backend, fix func(*T)) *Collection[T] {
	if fix == nil {
		fix = func(*T) {}
	}
	return &Collection[T]{name: name, backend: backend, fix: fix}
}

// Read calls fn with the current document. fn must not keep or modify it.
func (c *Collection[T]) Read(fn func(doc T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.doc)
}

// Update applies fn to the document and persists the result. When fn fails
// or the document cannot be saved, the in-memory copy is restored to the last
// persisted state and the error is returned.
func (c *Collection[T]) Update(ctx context.Context, fn func(doc *T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(&c.doc); err != nil {
		c.restore()
		return err
	}
	raw, err := encode(c.doc)
	if err == nil {
		err = c.backend.Save(ctx, c.name, raw)
	}
	if err != nil {
		c.restore()
		return fmt.Errorf("save %s: %w", c.name, err)
	}
	c.raw = raw
	return nil
}

// load reads the persisted document, creating it with the empty default when
// the backend has never seen it.
func (c *Collection[T]) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.backend.Load(ctx, c.name)
	if errors.Is(err, ErrNotExist) {
		return c.resetLocked(ctx)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", c.name, err)
	}
	doc, err := c.decode(raw)
	if err != nil {
		return err
	}
	c.doc, c.raw = doc, raw
	return nil
}

// reset replaces the document with its empty default.
func (c *Collection[T]) reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(ctx)
}

func (c *Collection[T]) resetLocked(ctx context.Context) error {
	var empty T
	c.fix(&empty)
	raw, err := encode(empty)
	if err != nil {
		return err
	}
	if err := c.backend.Save(ctx, c.name, raw); err != nil {
		return fmt.Errorf("create %s: %w", c.name, err)
	}
	c.doc, c.raw = empty, raw
	return nil
}

func (c *Collection[T]) decode(raw []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.name, err)
	}
	c.fix(&doc)
	return doc, nil
}

func (c *Collection[T]) restore() {
	if doc, err := c.decode(c.raw); err == nil {
		c.doc = doc
	}
}

// encode renders a document the way the original files were written: four
// space indentation, UTF-8 and HTML characters left unescaped.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

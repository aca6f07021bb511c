package document

import (
	"errors"
	"sort"
	"sync"

	"floorplan/internal/planner/metrics"
)

var ErrUnknownDocument = errors.New("unknown document")

// ============================================================
// Registry
// ============================================================

// Registry keeps the open documents of the process.
type Registry struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]*Document)}
}

// Open registers d, replacing and closing any document with the same id.
func (r *Registry) Open(d *Document) {
	r.mu.Lock()
	prev, ok := r.docs[d.ID()]
	r.docs[d.ID()] = d
	n := len(r.docs)
	r.mu.Unlock()

	if ok && prev != d {
		prev.Close()
	}
	metrics.OpenDocuments.Set(float64(n))
}

func (r *Registry) Get(id string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, ErrUnknownDocument
	}
	return d, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	d, ok := r.docs[id]
	delete(r.docs, id)
	n := len(r.docs)
	r.mu.Unlock()

	if !ok {
		return ErrUnknownDocument
	}
	d.Close()
	metrics.OpenDocuments.Set(float64(n))
	return nil
}

// IDs lists open documents, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

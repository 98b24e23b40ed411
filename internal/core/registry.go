package core

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps formats to their processors. It is built explicitly and
// handed to the loader; nothing registers itself at init time.
type Registry struct {
	mu         sync.RWMutex
	processors map[Format]Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[Format]Processor)}
}

// Register adds the processor for a format.
// Panics if the format is unrecognized, p is nil, or the format is taken.
func (r *Registry) Register(f Format, p Processor) {
	if !f.Recognized() {
		panic(fmt.Sprintf("cannot register processor for unrecognized format %q", f))
	}
	if p == nil {
		panic(fmt.Sprintf("nil processor for format %q", f))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processors[f]; exists {
		panic(fmt.Sprintf("processor already registered: %s", f))
	}
	r.processors[f] = p
}

// Get returns the processor for a format.
// Returns false if not found.
func (r *Registry) Get(f Format) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[f]
	return p, ok
}

// Formats returns all registered formats, sorted.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.processors))
	for f := range r.processors {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processors)
}

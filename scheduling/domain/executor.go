package domain

import (
	"context"
	"fmt"
	"sync"
)

// ContentExecutor performs the type-specific side effect of a schedule.
// Publish and Unpublish return false for a soft failure (e.g. the content
// row no longer exists); that is routed through the normal retry path, never
// treated as a crash. A returned error counts as a failure too.
type ContentExecutor interface {
	Publish(ctx context.Context, contentID string) (bool, error)
	Unpublish(ctx context.Context, contentID string) (bool, error)
}

// ExecutorRegistry maps content types to their executor so new types plug in
// without touching the state machine.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[ContentType]ContentExecutor
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[ContentType]ContentExecutor)}
}

func (r *ExecutorRegistry) Register(ct ContentType, exec ContentExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[ct] = exec
}

func (r *ExecutorRegistry) Get(ct ContentType) (ContentExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[ct]
	if !ok {
		return nil, fmt.Errorf("no executor registered for content type %q", ct)
	}
	return exec, nil
}

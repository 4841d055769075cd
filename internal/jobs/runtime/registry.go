package runtime

import (
	"context"
	"fmt"
	"sync"
)

// Task is one unit of detached background work. Payload is owned by the handler for Type.
type Task struct {
	Type    string
	Payload any
}

type Handler interface {
	Type() string
	Run(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	TaskType string
	Fn       func(ctx context.Context, task Task) error
}

func (h HandlerFunc) Type() string { return h.TaskType }

func (h HandlerFunc) Run(ctx context.Context, task Task) error { return h.Fn(ctx, task) }

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for task type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(taskType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	return h, ok
}

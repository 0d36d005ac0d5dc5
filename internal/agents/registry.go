package agents

import "context"

// ToolHandler executes one tool call against its parsed arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Registry maps tool names to handlers. It is populated once during agent
// construction and read-only afterwards, so lookups need no locking. The
// registry itself is passive; unknown-name handling is the orchestrator's
// job.
type Registry struct {
	handlers map[string]ToolHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ToolHandler)}
}

func (r *Registry) Register(name string, handler ToolHandler) {
	r.handlers[name] = handler
}

func (r *Registry) Get(name string) (ToolHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

package session

import "sync"

// ContextMap is the mutable per-session conversation context shared between
// the websocket handler, the agent's tool executions, and the approval
// callback endpoint.
type ContextMap struct {
	mu     sync.Mutex
	values map[string]any
}

func NewContextMap(seed map[string]any) *ContextMap {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &ContextMap{values: values}
}

func (c *ContextMap) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *ContextMap) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Snapshot returns a shallow copy of the current values.
func (c *ContextMap) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Package sessions tracks the live sessions owned by this process so the
// callback endpoint can reach them by ID and shutdown can drain them.
package sessions

import (
	"context"
	"sync"
)

// Member is the per-session surface the registry needs: cancellation for
// drains, warnings for shutdown notices, and the hooks the manager approval
// callback uses.
type Member interface {
	ID() string
	Cancel()
	NotifyError(message, action, errorType string) error
	SetContext(key string, value any)
	InjectModelTurn(text string) error
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup
}

type entry struct {
	member Member
	once   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Put registers a session and returns its removal func. Removal is
// exactly-once; registering a duplicate ID removes the old session first.
func (r *Registry) Put(m Member) (remove func()) {
	if r == nil || m == nil {
		return func() {}
	}

	e := &entry{member: m}

	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*entry)
	}
	old := r.sessions[m.ID()]
	r.sessions[m.ID()] = e
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		r.remove(m.ID(), old)
	}

	return func() { r.remove(m.ID(), e) }
}

func (r *Registry) remove(id string, e *entry) {
	e.once.Do(func() {
		r.mu.Lock()
		if r.sessions[id] == e {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
		r.wg.Done()
	})
}

func (r *Registry) Get(id string) (Member, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.member, true
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// WarnAll pushes an error envelope to every live session, used ahead of a
// drain so clients can wrap up.
func (r *Registry) WarnAll(message, action, errorType string) (sent int) {
	if r == nil {
		return 0
	}

	var members []Member
	r.mu.Lock()
	for _, e := range r.sessions {
		members = append(members, e.member)
	}
	r.mu.Unlock()

	for _, m := range members {
		_ = m.NotifyError(message, action, errorType)
		sent++
	}
	return sent
}

func (r *Registry) CancelAll() (canceled int) {
	if r == nil {
		return 0
	}

	var members []Member
	r.mu.Lock()
	for _, e := range r.sessions {
		members = append(members, e.member)
	}
	r.mu.Unlock()

	for _, m := range members {
		m.Cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has been removed or the
// context expires. Reports whether the registry fully drained.
func (r *Registry) Wait(ctx context.Context) bool {
	if r == nil {
		return true
	}
	if ctx == nil {
		r.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

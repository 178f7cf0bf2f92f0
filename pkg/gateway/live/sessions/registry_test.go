package sessions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeMember struct {
	id         string
	cancels    atomic.Int64
	warns      atomic.Int64
	warnErr    error
	contextKey string
	contextVal any
	injected   []string
}

func (m *fakeMember) ID() string { return m.id }
func (m *fakeMember) Cancel()    { m.cancels.Add(1) }

func (m *fakeMember) NotifyError(message, action, errorType string) error {
	m.warns.Add(1)
	return m.warnErr
}

func (m *fakeMember) SetContext(key string, value any) {
	m.contextKey = key
	m.contextVal = value
}

func (m *fakeMember) InjectModelTurn(text string) error {
	m.injected = append(m.injected, text)
	return nil
}

func TestRegistry_PutRemove_CountAndWait(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 {
		t.Fatalf("initial count=%d, want 0", r.Count())
	}

	rm1 := r.Put(&fakeMember{id: "s1"})
	rm2 := r.Put(&fakeMember{id: "s2"})
	if r.Count() != 2 {
		t.Fatalf("count=%d, want 2", r.Count())
	}

	rm1()
	rm1() // removal is exactly-once
	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1", r.Count())
	}

	rm2()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if ok := r.Wait(ctx); !ok {
		t.Fatalf("expected Wait to return true")
	}
	if r.Count() != 0 {
		t.Fatalf("count=%d, want 0", r.Count())
	}
}

func TestRegistry_GetByID(t *testing.T) {
	r := NewRegistry()
	m := &fakeMember{id: "s_abc"}
	remove := r.Put(m)
	defer remove()

	got, ok := r.Get("s_abc")
	if !ok {
		t.Fatal("Get returned false for a registered session")
	}
	got.SetContext("manager_approved", true)
	if m.contextKey != "manager_approved" || m.contextVal != true {
		t.Fatalf("context update did not reach the member: %q=%v", m.contextKey, m.contextVal)
	}
	if err := got.InjectModelTurn("approved"); err != nil {
		t.Fatalf("InjectModelTurn: %v", err)
	}
	if len(m.injected) != 1 || m.injected[0] != "approved" {
		t.Fatalf("injected=%q", m.injected)
	}

	if _, ok := r.Get("s_missing"); ok {
		t.Fatal("Get returned true for an unknown session")
	}
}

func TestRegistry_DuplicateIDReplacesOld(t *testing.T) {
	r := NewRegistry()
	old := &fakeMember{id: "s1"}
	rmOld := r.Put(old)
	fresh := &fakeMember{id: "s1"}
	rmFresh := r.Put(fresh)

	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1 after duplicate registration", r.Count())
	}
	got, ok := r.Get("s1")
	if !ok || got != Member(fresh) {
		t.Fatal("lookup did not return the replacement session")
	}

	// The stale removal func must not unregister the replacement.
	rmOld()
	if _, ok := r.Get("s1"); !ok {
		t.Fatal("stale removal dropped the replacement session")
	}
	rmFresh()
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry()
	m1 := &fakeMember{id: "s1"}
	m2 := &fakeMember{id: "s2"}
	r.Put(m1)
	r.Put(m2)

	if n := r.CancelAll(); n != 2 {
		t.Fatalf("canceled=%d, want 2", n)
	}
	if m1.cancels.Load() != 1 || m2.cancels.Load() != 1 {
		t.Fatalf("cancel calls=%d/%d, want 1/1", m1.cancels.Load(), m2.cancels.Load())
	}
}

func TestRegistry_WarnAll_BestEffort(t *testing.T) {
	r := NewRegistry()
	m1 := &fakeMember{id: "s1"}
	m2 := &fakeMember{id: "s2", warnErr: errors.New("nope")}
	r.Put(m1)
	r.Put(m2)

	if sent := r.WarnAll("server is draining", "please reconnect", "general_server_error"); sent != 2 {
		t.Fatalf("sent=%d, want 2", sent)
	}
	if m1.warns.Load() != 1 || m2.warns.Load() != 1 {
		t.Fatalf("warn calls=%d/%d, want 1/1", m1.warns.Load(), m2.warns.Load())
	}
}

func TestRegistry_WaitTimesOut(t *testing.T) {
	r := NewRegistry()
	r.Put(&fakeMember{id: "s1"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if ok := r.Wait(ctx); ok {
		t.Fatal("Wait reported drained while a session was still registered")
	}
}

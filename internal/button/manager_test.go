package button

import (
	"testing"
	"time"
)

func TestManagerLifecycleTracksRefcount(t *testing.T) {
	p1 := &fakePin{}
	p2 := &fakePin{}
	e1, _ := NewEngine("one", p1, false, false)
	e2, _ := NewEngine("two", p2, false, false)

	Register(e1)
	if globalManager == nil {
		t.Fatal("expected manager to be created on first Register")
	}
	first := globalManager

	Register(e2)
	if globalManager != first {
		t.Fatal("expected same manager instance for second Register")
	}
	if refCount != 2 {
		t.Fatalf("refCount = %d, want 2", refCount)
	}

	Unregister(e1)
	if globalManager != first {
		t.Fatal("manager should survive while one engine remains")
	}

	Unregister(e2)
	if globalManager != nil {
		t.Fatal("expected manager to be torn down after last Unregister")
	}
}

func TestManagerDeliversPressEvent(t *testing.T) {
	p := &fakePin{level: false}
	e, _ := NewEngine("test", p, false, false)
	Register(e)
	defer Unregister(e)

	p.level = true

	select {
	case ev := <-e.Events():
		if ev.Type != Press {
			t.Fatalf("got %s, want PRESS", ev.Type)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for PRESS event")
	}
}

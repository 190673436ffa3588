package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "u1"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}

	if err := m.Put(ctx, "u1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc, err := m.Get(ctx, "u1")
	if err != nil || string(doc) != `{"v":1}` {
		t.Fatalf("get = %q, %v", doc, err)
	}

	// Last writer wins for the whole document.
	if err := m.Put(ctx, "u1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc, _ = m.Get(ctx, "u1")
	if string(doc) != `{"v":2}` {
		t.Fatalf("overwrite lost: %q", doc)
	}

	// Returned docs are copies.
	doc[0] = 'X'
	again, _ := m.Get(ctx, "u1")
	if string(again) != `{"v":2}` {
		t.Fatal("Get leaked internal buffer")
	}

	if err := m.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "u1"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument after delete, got %v", err)
	}
	// Deleting a missing key is fine.
	if err := m.Delete(ctx, "ghost"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

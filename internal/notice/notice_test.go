package notice

import (
	"testing"
	"time"
)

func TestNoticesExpireAfterTTL(t *testing.T) {
	b := NewBoard(20 * time.Millisecond)
	defer b.Close()

	n := b.Error("Agrega productos primero")
	if n.Kind != KindError || len(b.List()) != 1 {
		t.Fatalf("expected one error notice, got %+v", b.List())
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(b.List()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("notice did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDismissRemovesImmediately(t *testing.T) {
	b := NewBoard(time.Hour)
	defer b.Close()

	first := b.Info("¡Venta Exitosa!")
	b.Info("otra")
	if !b.Dismiss(first.ID) {
		t.Fatalf("expected dismiss to find notice")
	}
	if b.Dismiss(first.ID) {
		t.Fatalf("second dismiss must report missing")
	}
	if list := b.List(); len(list) != 1 || list[0].Message != "otra" {
		t.Fatalf("unexpected notices %+v", list)
	}
}

func TestDefaultTTL(t *testing.T) {
	b := NewBoard(0)
	defer b.Close()
	if b.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", b.ttl)
	}
}

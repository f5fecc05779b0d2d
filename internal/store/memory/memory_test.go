package memory

import (
	"context"
	"errors"
	"testing"

	"pasmi/terminal/internal/store"
)

type settings struct {
	Name string `json:"name"`
	Nit  string `json:"nit"`
}

func TestRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, store.KeySession); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.PutJSON(ctx, s, store.KeySettings, settings{Name: "Pasmi", Nit: "901"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.GetJSON[settings](ctx, s, store.KeySettings)
	if err != nil || got.Name != "Pasmi" {
		t.Fatalf("unexpected settings %+v err=%v", got, err)
	}
	if err := s.Delete(ctx, store.KeySettings); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetJSON[settings](ctx, s, store.KeySettings); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Put(ctx, "k", []byte(`"active"`))
	raw, _ := s.Get(ctx, "k")
	raw[1] = 'X'
	again, _ := s.Get(ctx, "k")
	if string(again) != `"active"` {
		t.Fatalf("stored value was mutated through returned slice: %s", again)
	}
}

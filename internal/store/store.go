// Package store persists the small amount of terminal state that must
// survive a restart: the session flag and the cached settings.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("not found")

const (
	KeySession  = "pasmi_session"
	KeySettings = "pasmi_settings"

	SessionActive = "active"
)

type StateStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
}

func GetJSON[T any](ctx context.Context, s StateStore, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func PutJSON(ctx context.Context, s StateStore, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, raw)
}

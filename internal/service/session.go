package service

import (
	"context"
	"errors"

	"pasmi/terminal/internal/store"
)

// StartSession marks the terminal as logged in. The flag lives in the state
// store so it outlives a restart when the store is durable.
func (s *Service) StartSession(ctx context.Context) error {
	if err := store.PutJSON(ctx, s.state, store.KeySession, store.SessionActive); err != nil {
		return err
	}
	s.logAudit(ctx, "session_start", "session", store.KeySession, "")
	return nil
}

func (s *Service) EndSession(ctx context.Context) error {
	if err := s.state.Delete(ctx, store.KeySession); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.cart.Clear()
	s.resetKeypad()
	s.logAudit(ctx, "session_end", "session", store.KeySession, "")
	return nil
}

func (s *Service) SessionActive(ctx context.Context) (bool, error) {
	flag, err := store.GetJSON[string](ctx, s.state, store.KeySession)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return flag == store.SessionActive, nil
}

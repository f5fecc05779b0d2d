// Package notice keeps the short-lived messages shown to the operator.
package notice

import (
	"sync"
	"time"

	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/xid"
)

const DefaultTTL = 3 * time.Second

const (
	KindInfo  = "info"
	KindError = "error"
)

// Board holds notices until they expire or are dismissed.
type Board struct {
	mu      sync.Mutex
	ttl     time.Duration
	notices []domain.Notice
	timers  map[string]*time.Timer
	now     func() time.Time
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, timers: make(map[string]*time.Timer), now: time.Now}
}

func (b *Board) Info(message string) domain.Notice {
	return b.show(message, KindInfo)
}

func (b *Board) Error(message string) domain.Notice {
	return b.show(message, KindError)
}

func (b *Board) show(message string, kind string) domain.Notice {
	n := domain.Notice{ID: xid.New("ntc"), Message: message, Kind: kind, CreatedAt: b.now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	b.timers[n.ID] = time.AfterFunc(b.ttl, func() { b.Dismiss(n.ID) })
	return n
}

func (b *Board) List() []domain.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	for i := range b.notices {
		if b.notices[i].ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			return true
		}
	}
	return false
}

// Close stops pending expiry timers.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	return nil
}

package circulation

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrBusy = errors.New("BUSY")

// Guard allows one action at a time per row. It is advisory: the backend does not
// deduplicate requests.
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

func (g *Guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[key]; ok {
		return false
	}
	g.busy[key] = struct{}{}
	return true
}

func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}

// Busy reports whether key has an action in flight.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}

// Do runs fn unless key is already busy. The key is released however fn ends.
func (g *Guard) Do(key string, fn func() error) error {
	if !g.acquire(key) {
		return ErrBusy
	}
	defer g.release(key)
	return fn()
}

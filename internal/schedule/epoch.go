package schedule

import "sync"

// ViewKey identifies a logical agenda view with its own reload lifecycle.
type ViewKey string

const (
	ViewDay  ViewKey = "day"
	ViewWeek ViewKey = "week"
)

// Epoch is the token returned by EpochGuard.Bump. A fetch captures it before
// suspending and presents it back on completion; only the holder of the most
// recent token for its view may commit results.
type Epoch struct {
	view ViewKey
	seq  uint64
}

// View returns the view the token was issued for.
func (e Epoch) View() ViewKey { return e.view }

// EpochGuard hands out monotonically increasing epochs per view and decides
// whether an async response is still current. It enforces last-request-wins:
// whenever a new reload bumps the epoch, every response captured under an
// earlier epoch becomes stale and must be discarded, regardless of the order
// in which the underlying requests complete.
type EpochGuard struct {
	mu   sync.Mutex
	seqs map[ViewKey]uint64
}

// Bump increments the view's epoch and returns the new token. The sequence
// is strictly increasing for the guard's lifetime and never reused.
func (g *EpochGuard) Bump(view ViewKey) Epoch {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seqs == nil {
		g.seqs = make(map[ViewKey]uint64)
	}
	g.seqs[view]++
	return Epoch{view: view, seq: g.seqs[view]}
}

// IsCurrent reports whether the token still names the most recent epoch of
// its view.
func (g *EpochGuard) IsCurrent(e Epoch) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seqs[e.view] == e.seq
}

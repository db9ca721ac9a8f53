package monitor

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Local stands in for the scouting API when no credentials are configured. It mints ids
// so products remain addressable by webhook tests, but nothing watches the pages.
type Local struct {
	logger zerolog.Logger

	mu     sync.Mutex
	scouts map[string]Scout
}

// NewLocal constructs an in-process monitor.
func NewLocal(logger zerolog.Logger) *Local {
	return &Local{
		logger: logger.With().Str("component", "monitor_local").Logger(),
		scouts: make(map[string]Scout),
	}
}

// Create mints a random scout id.
func (l *Local) Create(_ context.Context, url, name string) (string, error) {
	id := uuid.NewString()
	l.mu.Lock()
	l.scouts[id] = Scout{ID: id, StartURL: url, Status: "local"}
	l.mu.Unlock()
	l.logger.Warn().Str("scout_id", id).Str("name", name).Msg("local scout created; page changes will not be detected")
	return id, nil
}

// Delete forgets id.
func (l *Local) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	delete(l.scouts, id)
	l.mu.Unlock()
	return nil
}

// List returns the locally minted scouts.
func (l *Local) List(context.Context) ([]Scout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Scout, 0, len(l.scouts))
	for _, s := range l.scouts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Monitor = (*Local)(nil)

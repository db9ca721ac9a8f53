package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Throttle forwards notifications whose margin clears a threshold, at most once per
// product within the cooldown window.
type Throttle struct {
	next      Notifier
	threshold decimal.Decimal
	cooldown  time.Duration
	channels  []string
	now       func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewThrottle wraps next.
func NewThrottle(next Notifier, threshold decimal.Decimal, cooldown time.Duration, channels []string) *Throttle {
	return &Throttle{
		next:      next,
		threshold: threshold,
		cooldown:  cooldown,
		channels:  channels,
		now:       time.Now,
		sent:      make(map[string]time.Time),
	}
}

// Notify drops notifications under the threshold or inside the product's cooldown.
func (t *Throttle) Notify(ctx context.Context, note Notification) error {
	opp := note.Opportunity
	if opp.MarginPct.LessThan(t.threshold) {
		return nil
	}

	now := t.now()
	t.mu.Lock()
	if last, ok := t.sent[opp.ProductID]; ok && t.cooldown > 0 && now.Sub(last) < t.cooldown {
		t.mu.Unlock()
		return nil
	}
	t.sent[opp.ProductID] = now
	t.mu.Unlock()

	if note.ThresholdPct == "" {
		note.ThresholdPct = t.threshold.StringFixed(2)
	}
	if len(note.Channels) == 0 {
		note.Channels = t.channels
	}

	if err := t.next.Notify(ctx, note); err != nil {
		t.mu.Lock()
		if t.sent[opp.ProductID].Equal(now) {
			delete(t.sent, opp.ProductID)
		}
		t.mu.Unlock()
		return err
	}
	return nil
}

// Forget clears the cooldown for productID.
func (t *Throttle) Forget(productID string) {
	t.mu.Lock()
	delete(t.sent, productID)
	t.mu.Unlock()
}

var _ Notifier = (*Throttle)(nil)

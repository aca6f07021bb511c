package signal

import (
	"log/slog"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/metrics"
)

// ============================================================
// Signal Bus
// ============================================================

type Listener func(entity.Signal)

// Token identifies a registered listener.
type Token uint64

type subscription struct {
	token Token
	fn    Listener
}

// Bus delivers signals synchronously in listener registration order.
//
// Signals raised while the bus is held, or from inside a listener, are queued
// and delivered after the current dispatch returns, so listeners never run
// re-entrantly.
type Bus struct {
	subs        []subscription
	next        Token
	holds       int
	dispatching bool
	queue       []entity.Signal
	logger      *slog.Logger
}

func NewBus() *Bus {
	return &Bus{logger: slog.Default().With("component", "signal.Bus")}
}

func (b *Bus) Listen(fn Listener) Token {
	b.next++
	b.subs = append(b.subs, subscription{token: b.next, fn: fn})
	return b.next
}

func (b *Bus) Unlisten(t Token) {
	for i, s := range b.subs {
		if s.token == t {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Dispatch(s entity.Signal) {
	if b.holds > 0 || b.dispatching {
		b.queue = append(b.queue, s)
		return
	}
	b.deliver(s)
	b.drain()
}

// Hold queues every dispatch until the matching Release. Holds nest.
func (b *Bus) Hold() {
	b.holds++
}

// Release ends one Hold; the outermost Release flushes the queue with duplicates folded.
func (b *Bus) Release() {
	if b.holds == 0 {
		return
	}
	b.holds--
	if b.holds == 0 && !b.dispatching {
		b.drain()
	}
}

func (b *Bus) Held() bool {
	return b.holds > 0
}

func (b *Bus) deliver(s entity.Signal) {
	b.dispatching = true
	defer func() { b.dispatching = false }()

	metrics.SignalsDispatched.WithLabelValues(s.TargetKind.String(), s.Data.Type.String()).Inc()
	subs := append([]subscription(nil), b.subs...)
	for _, sub := range subs {
		sub.fn(s)
	}
}

func (b *Bus) drain() {
	for len(b.queue) > 0 && b.holds == 0 {
		batch := dedupe(b.queue)
		b.queue = nil
		if len(batch) > 1 {
			b.logger.Debug("flushing queued signals", "count", len(batch))
		}
		for i, s := range batch {
			if b.holds > 0 {
				// a listener took a hold; keep the rest for its Release
				b.queue = append(append([]entity.Signal(nil), batch[i:]...), b.queue...)
				return
			}
			b.deliver(s)
		}
	}
}

func dedupe(signals []entity.Signal) []entity.Signal {
	seen := make(map[entity.Signal]struct{}, len(signals))
	out := make([]entity.Signal, 0, len(signals))
	for _, s := range signals {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
//
// With DropIfFull set, a full buffer drops events instead of blocking the
// caller, except for the types listed in Pinned. Pinned events always wait for
// buffer room and are lost only when the caller's context ends. The engine pins
// the events that move seats, so the audit trail of who holds which seat has no
// gaps under load.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Pinned     []string
}

// Dispatcher asynchronously forwards audit events to a sink and counts, per
// event type, the events that never reached it.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	pinned    map[string]struct{}
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	byType map[string]uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		pinned: make(map[string]struct{}, len(cfg.Pinned)),
		ch:     make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
		byType: make(map[string]uint64),
	}
	for _, t := range cfg.Pinned {
		d.pinned[t] = struct{}{}
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues event for delivery. An event that is shed because the buffer
// is full, or abandoned because ctx ended first, counts as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull && !d.IsPinned(event.Type) {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.drop(event.Type)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.Type)
	case <-d.done:
	}
}

// IsPinned reports whether eventType is exempt from DropIfFull.
func (d *Dispatcher) IsPinned(eventType string) bool {
	if d == nil {
		return false
	}
	_, ok := d.pinned[eventType]
	return ok
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.mu.Lock()
	d.byType[eventType]++
	d.mu.Unlock()
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped is the total number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]uint64, len(d.byType))
	for t, n := range d.byType {
		out[t] = n
	}
	return out
}

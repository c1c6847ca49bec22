package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatcherConfig controls buffering.
type DispatcherConfig struct {
	BufferSize int
	// DropIfFull discards entries when the buffer is full instead of blocking
	// the caller.
	DropIfFull bool
}

// Dispatcher relays entries to a Sink from a single background goroutine.
// A nil *Dispatcher is valid and drops everything.
type Dispatcher struct {
	dropIfFull bool
	sink       Sink
	ch         chan Entry
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closeOnce  sync.Once
}

// NewDispatcher starts a dispatcher in front of sink.
func NewDispatcher(cfg DispatcherConfig, sink Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		ch:         make(chan Entry, cfg.BufferSize),
		done:       make(chan struct{}),
	}

	d.wg.Add(1)
	go d.loop()

	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ctx := context.Background()
	for {
		select {
		case e := <-d.ch:
			d.sink.Emit(ctx, e)
		case <-d.done:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case e := <-d.ch:
			d.sink.Emit(ctx, e)
		default:
			return
		}
	}
}

// Emit queues e. Entries emitted after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, e Entry) {
	if d == nil {
		return
	}
	select {
	case <-d.done:
		return
	default:
	}

	if d.dropIfFull {
		select {
		case d.ch <- e:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.ch <- e:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops the dispatcher after flushing buffered entries.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many entries were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

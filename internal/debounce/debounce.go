// Package debounce runs keyed callbacks after a quiet period.
//
// Each key has at most one pending callback. Scheduling again replaces the
// callback and restarts the timer; Flush runs the pending callback right
// away. A scheduled callback runs at most once, whether it fires from the
// timer or from Flush.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	fn    func()
	timer *time.Timer
	done  chan struct{}
}

// Debouncer holds the pending callbacks.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	running map[string]*entry
	stopped bool
}

// New returns a Debouncer with the given quiet period.
func New(wait time.Duration) *Debouncer {
	return &Debouncer{
		wait:    wait,
		pending: make(map[string]*entry),
		running: make(map[string]*entry),
	}
}

// Wait returns the quiet period.
func (d *Debouncer) Wait() time.Duration { return d.wait }

// Schedule sets fn as the pending callback for key and restarts its timer.
// After Stop it does nothing.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}
	e := &entry{fn: fn, done: make(chan struct{})}
	e.timer = time.AfterFunc(d.wait, func() { d.fire(key, e) })
	d.pending[key] = e
}

// Pending reports whether key has a callback waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

func (d *Debouncer) fire(key string, e *entry) {
	d.mu.Lock()
	if d.pending[key] != e {
		// Replaced or flushed meanwhile.
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running[key] = e
	d.mu.Unlock()

	d.run(key, e)
}

func (d *Debouncer) run(key string, e *entry) {
	defer func() {
		d.mu.Lock()
		if d.running[key] == e {
			delete(d.running, key)
		}
		d.mu.Unlock()
		close(e.done)
	}()
	e.fn()
}

// Flush runs the pending callback for key synchronously. If the timer has
// already fired and the callback is still running, Flush waits for it.
// It reports whether a pending callback was run.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
		delete(d.pending, key)
		d.running[key] = e
		d.mu.Unlock()
		d.run(key, e)
		return true
	}
	r, busy := d.running[key]
	d.mu.Unlock()
	if busy {
		<-r.done
	}
	return false
}

// FlushAll flushes every pending key.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending)+len(d.running))
	for k := range d.pending {
		keys = append(keys, k)
	}
	for k := range d.running {
		keys = append(keys, k)
	}
	d.mu.Unlock()
	for _, k := range keys {
		d.Flush(k)
	}
}

// Cancel drops the pending callback for key without running it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop flushes everything and rejects later Schedule calls.
func (d *Debouncer) Stop() {
	d.FlushAll()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

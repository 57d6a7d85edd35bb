package services

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls. Each Schedule resets the single
// pending timer, so only the last call within the idle window fires. The
// generation it returns lets a late response check whether it still belongs
// to the latest call.
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

func (d *Debouncer) Schedule(fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { fn(gen) })
	return gen
}

// IsLatest reports whether gen belongs to the most recent Schedule call.
func (d *Debouncer) IsLatest(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Stop drops the pending call and invalidates any call already running.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

package countdown

import (
	"sync"
	"time"
)

// Ticker drives a timer map with a single repeating one-second tick shared
// across all offers. The owner must call Stop when the proposal view is torn
// down or the goroutine leaks and keeps mutating a detached map.
type Ticker struct {
	// Interval overrides the one-second default, for tests only.
	Interval time.Duration
	// OnTick is invoked after each tick with the ids whose entries were
	// removed on that tick. It runs on the ticker goroutine.
	OnTick func(expired []string)

	mu      sync.Mutex
	timers  map[string]Timer
	stop    chan struct{}
	running bool
}

// Start resets the ticker with a fresh timer map and begins ticking. Calling
// Start on a running ticker rebuilds state from the new map; timers from a
// previous run never survive.
func (tk *Ticker) Start(timers map[string]Timer) {
	tk.mu.Lock()
	tk.timers = timers
	if !tk.running {
		tk.stop = make(chan struct{})
		tk.running = true
		go tk.run(tk.stop)
	}
	tk.mu.Unlock()
}

// Stop halts the tick loop. Safe to call more than once.
func (tk *Ticker) Stop() {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	if !tk.running {
		return
	}
	close(tk.stop)
	tk.running = false
}

// Timer returns the live entry for an offer id.
func (tk *Ticker) Timer(id string) (Timer, bool) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	t, ok := tk.timers[id]
	return t, ok
}

// Snapshot returns a copy of the live timer map.
func (tk *Ticker) Snapshot() map[string]Timer {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	out := make(map[string]Timer, len(tk.timers))
	for id, t := range tk.timers {
		out[id] = t
	}
	return out
}

func (tk *Ticker) interval() time.Duration {
	if tk.Interval <= 0 {
		return time.Second
	}
	return tk.Interval
}

func (tk *Ticker) run(stop <-chan struct{}) {
	ticker := time.NewTicker(tk.interval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tk.advance()
		}
	}
}

func (tk *Ticker) advance() {
	tk.mu.Lock()
	before := tk.timers
	next := Tick(before)
	var expired []string
	for id := range before {
		if _, ok := next[id]; !ok {
			expired = append(expired, id)
		}
	}
	tk.timers = next
	callback := tk.OnTick
	tk.mu.Unlock()

	if callback != nil {
		callback(expired)
	}
}

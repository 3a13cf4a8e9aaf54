package countdown

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Tick is the fixed countdown resolution
const Tick = time.Second

// Timer is a cancelable one-second-tick countdown. At most one countdown is
// live per Timer: Start cancels the previous one first.
type Timer struct {
	clock  clock.Clock
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	stop       chan struct{}
}

// New creates a countdown timer driven by clk
func New(clk clock.Clock, logger *zap.Logger) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{
		clock:  clk,
		logger: logger,
	}
}

// Start counts down from seconds. onTick receives the remaining ticks after
// each tick while remaining > 0, and onComplete fires once remaining reaches 0.
// Callbacks run on the timer goroutine.
func (t *Timer) Start(seconds int, onTick func(remaining int), onComplete func()) {
	t.mu.Lock()
	t.cancelLocked()
	t.generation++
	gen := t.generation
	stop := make(chan struct{})
	t.stop = stop
	ticker := t.clock.Ticker(Tick)
	t.mu.Unlock()

	t.logger.Debug("Countdown started", zap.Int("seconds", seconds), zap.Uint64("generation", gen))

	go t.run(gen, seconds, ticker, stop, onTick, onComplete)
}

// Cancel stops the live countdown, if any, and suppresses its onComplete.
// Safe to call when idle.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Active reports whether a countdown is running
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Timer) cancelLocked() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.generation++
}

func (t *Timer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation == gen && t.stop != nil
}

func (t *Timer) finish(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.generation != gen || t.stop == nil {
		return false
	}
	t.stop = nil
	return true
}

func (t *Timer) run(gen uint64, remaining int, ticker *clock.Ticker, stop <-chan struct{}, onTick func(int), onComplete func()) {
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		remaining--
		if remaining > 0 {
			if !t.current(gen) {
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
		}
	}

	if !t.finish(gen) {
		return
	}
	t.logger.Debug("Countdown complete", zap.Uint64("generation", gen))
	if onComplete != nil {
		onComplete()
	}
}

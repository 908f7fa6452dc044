package chiptest

import (
	"container/heap"
	"math"
	"time"

	"github.com/BertoldVdb/go-chipapi/chipapi"
	"github.com/BertoldVdb/go-chipapi/chipapi/abi"
)

// maxDelay keeps the clock from wrapping.
const maxDelay = 1 << 62

type event struct {
	at        uint64
	seq       uint64
	cancelled bool
	fire      func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	e := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return e
}

// clock is the simulated time in nanoseconds. Events scheduled for the same
// instant fire in the order they were scheduled.
type clock struct {
	now    uint64
	seq    uint64
	events eventQueue
}

func (c *clock) init() {
	heap.Init(&c.events)
}

func (c *clock) schedule(delay uint64, fire func()) *event {
	c.seq++
	e := &event{at: c.now + delay, seq: c.seq, fire: fire}
	heap.Push(&c.events, e)
	return e
}

// next removes the first event due at or before deadline.
func (c *clock) next(deadline uint64) *event {
	for len(c.events) > 0 {
		e := c.events[0]
		if e.at > deadline {
			return nil
		}
		heap.Pop(&c.events)
		if !e.cancelled {
			return e
		}
	}
	return nil
}

func (h *Host) GetSimNanos() float64 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return float64(h.clock.now)
}

// Now returns the simulation time.
func (h *Host) Now() time.Duration {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return time.Duration(h.clock.now)
}

// Advance moves simulation time forward by d, firing every event that falls
// due on the way. Callbacks run without the host lock held and may schedule
// further events.
func (h *Host) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}

	h.mutex.Lock()
	deadline := h.clock.now + uint64(d)
	for {
		e := h.clock.next(deadline)
		if e == nil {
			break
		}
		h.clock.now = e.at
		h.mutex.Unlock()

		e.fire()

		h.mutex.Lock()
	}
	h.clock.now = deadline
	h.mutex.Unlock()
}

type timer struct {
	rec     []byte
	pending *event
}

func (h *Host) timer(id chipapi.TimerID) *timer {
	if int64(id) >= int64(len(h.timers)) {
		return nil
	}
	return h.timers[id]
}

func (h *Host) TimerInit(config *abi.TimerConfig) chipapi.TimerID {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.checkSetup("timerInit") {
		return invalidHandle
	}

	h.timers = append(h.timers, &timer{rec: h.encode("timerInit", config)})
	return chipapi.TimerID(len(h.timers) - 1)
}

func (h *Host) TimerStart(id chipapi.TimerID, micros uint32, repeat bool) {
	h.startTimer(id, uint64(micros)*1000, repeat)
}

func (h *Host) TimerStartNanos(id chipapi.TimerID, nanos float64, repeat bool) {
	var delay uint64
	switch {
	case math.IsNaN(nanos) || nanos <= 0:
	case nanos >= maxDelay:
		delay = maxDelay
	default:
		delay = uint64(nanos)
	}
	h.startTimer(id, delay, repeat)
}

// startTimer (re)arms a timer. A repeating timer never fires more than once
// per nanosecond.
func (h *Host) startTimer(id chipapi.TimerID, delay uint64, repeat bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	t := h.timer(id)
	if t == nil {
		return
	}
	if t.pending != nil {
		t.pending.cancelled = true
	}

	period := delay
	if repeat && period == 0 {
		period = 1
	}

	var fire func()
	fire = func() {
		h.mutex.Lock()
		if repeat {
			t.pending = h.clock.schedule(period, fire)
		} else {
			t.pending = nil
		}

		var rec abi.TimerConfig
		ok := decode(t.rec, &rec) && h.callable(rec.Callback, chipapi.CallbackTimer)
		reg := h.reg
		h.mutex.Unlock()

		if ok {
			reg.Timer(rec.UserData)
		}
	}
	t.pending = h.clock.schedule(delay, fire)
}

func (h *Host) TimerStop(id chipapi.TimerID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if t := h.timer(id); t != nil && t.pending != nil {
		t.pending.cancelled = true
		t.pending = nil
	}
}

// TimerRunning reports whether a timer is armed.
func (h *Host) TimerRunning(id chipapi.TimerID) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	t := h.timer(id)
	return t != nil && t.pending != nil
}

package chipapi

import (
	"errors"
	"sync"
)

var (
	// ErrorUARTRejected is returned when the host refuses a write while no write of this UART is pending
	ErrorUARTRejected = errors.New("UART write was rejected by the host")
)

// UART is an io.Writer on top of UARTWrite. The host accepts one write at a
// time; writes issued while one is in flight are queued and sent from the
// write_done callback.
type UART struct {
	chip *Chip
	ID   UARTDevID

	mutex     sync.Mutex
	queue     txQueue
	busy      bool
	writeDone func()
}

// NewUART calls UARTInit, so it may only be used during setup. The WriteDone
// callback of config is called once the queue has drained.
func (c *Chip) NewUART(config *UARTConfig) *UART {
	u := &UART{chip: c}
	u.queue.init(4)

	var cfg UARTConfig
	if config != nil {
		cfg = *config
	}
	u.writeDone = cfg.WriteDone
	cfg.WriteDone = u.onWriteDone
	u.ID = c.UARTInit(&cfg)

	return u
}

func (u *UART) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := append([]byte(nil), p...)

	u.mutex.Lock()
	if u.busy {
		u.queue.Push(buf)
		u.mutex.Unlock()
		return len(p), nil
	}
	u.busy = true
	u.mutex.Unlock()

	if !u.chip.UARTWrite(u.ID, buf) {
		// No write_done follows a rejected write.
		u.mutex.Lock()
		dropped := u.queue.bytes
		u.queue.Clear()
		u.busy = false
		u.mutex.Unlock()

		if dropped > 0 {
			u.chip.Logger().WithField("uart", u.ID).Errorf("Host rejected write, dropped %d queued bytes", dropped)
		}
		return 0, ErrorUARTRejected
	}

	return len(p), nil
}

// Pending returns the number of bytes waiting for an earlier write to finish.
func (u *UART) Pending() int {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	return u.queue.bytes
}

func (u *UART) onWriteDone() {
	u.mutex.Lock()
	next := u.queue.Pop()
	if next == nil {
		u.busy = false
	}
	u.mutex.Unlock()

	if next != nil {
		if u.chip.UARTWrite(u.ID, next) {
			return
		}

		u.mutex.Lock()
		dropped := len(next) + u.queue.bytes
		u.queue.Clear()
		u.busy = false
		u.mutex.Unlock()

		u.chip.Logger().WithField("uart", u.ID).Errorf("Host rejected queued write, dropped %d bytes", dropped)
	}

	if u.writeDone != nil {
		u.writeDone()
	}
}

// txQueue is a ring of pending writes that doubles when full.
type txQueue struct {
	ring [][]byte

	readPointer  int
	writePointer int
	elements     int
	bytes        int
}

func (q *txQueue) init(size int) {
	if size < 1 {
		size = 1
	}
	q.ring = make([][]byte, size)
}

func (q *txQueue) incrementPointer(ptr *int) {
	*ptr++
	if *ptr >= len(q.ring) {
		*ptr = 0
	}
}

func (q *txQueue) Pop() []byte {
	if q.elements == 0 {
		return nil
	}

	e := q.ring[q.readPointer]
	q.ring[q.readPointer] = nil
	q.incrementPointer(&q.readPointer)
	q.elements--
	q.bytes -= len(e)

	return e
}

func (q *txQueue) grow() {
	newRing := make([][]byte, 2*len(q.ring))

	n := 0
	for q.elements > 0 {
		e := q.ring[q.readPointer]
		q.ring[q.readPointer] = nil
		q.incrementPointer(&q.readPointer)
		q.elements--

		newRing[n] = e
		n++
	}

	q.ring = newRing
	q.readPointer = 0
	q.writePointer = n
	q.elements = n
}

func (q *txQueue) Push(buf []byte) {
	assert(buf != nil, "Cannot queue nil buffers")

	if q.elements == len(q.ring) {
		q.grow()
	}

	assert(q.ring[q.writePointer] == nil, "Ring at write pointer contained element!")
	q.ring[q.writePointer] = buf
	q.incrementPointer(&q.writePointer)
	q.elements++
	q.bytes += len(buf)
}

func (q *txQueue) Len() int {
	return q.elements
}

func (q *txQueue) Clear() {
	for q.Pop() != nil {
	}
}

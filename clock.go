package dispatch

import (
	"sync"
	"sync/atomic"
)

// waiter is a wake callback registered for a frame.
type waiter struct {
	frame uint64
	wake  func()
}

// Clock is the default TickSource: a monotonic tick counter advanced by the host.
//
// Waiters are kept in a binary heap keyed by the frame they wait on, so
// Advance wakes exactly the waiters whose frame has passed.
type Clock struct {
	current atomic.Uint64

	mu   sync.Mutex
	heap []waiter
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific tick.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.current.Store(start)
	return c
}

// Current returns the current tick without advancing.
func (c *Clock) Current() uint64 {
	return c.current.Load()
}

// Notify implements TickSource.
func (c *Clock) Notify(frame uint64, wake func()) {
	c.mu.Lock()
	if c.current.Load() > frame {
		c.mu.Unlock()
		wake()
		return
	}
	c.push(waiter{frame: frame, wake: wake})
	c.mu.Unlock()
}

// Advance increments the counter and wakes every waiter whose frame has passed.
// Wake callbacks run on the calling goroutine after the clock lock is released.
func (c *Clock) Advance() uint64 {
	c.mu.Lock()
	now := c.current.Add(1)
	var due []waiter
	for len(c.heap) > 0 && c.heap[0].frame < now {
		due = append(due, c.pop())
	}
	c.mu.Unlock()

	for _, w := range due {
		w.wake()
	}
	return now
}

// Pending returns the number of registered waiters.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.heap)
}

// push adds a waiter. Caller must hold lock.
func (c *Clock) push(w waiter) {
	c.heap = append(c.heap, w)
	c.up(len(c.heap) - 1)
}

// pop removes and returns the waiter with the lowest frame. Caller must hold lock.
func (c *Clock) pop() waiter {
	n := len(c.heap) - 1
	c.heap[0], c.heap[n] = c.heap[n], c.heap[0]
	c.down(0, n)
	w := c.heap[n]
	c.heap[n] = waiter{} // Allow GC
	c.heap = c.heap[:n]
	return w
}

func (c *Clock) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || c.heap[i].frame >= c.heap[parent].frame {
			break
		}
		c.heap[i], c.heap[parent] = c.heap[parent], c.heap[i]
		i = parent
	}
}

func (c *Clock) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 {
			break
		}
		j := left
		if right := left + 1; right < n && c.heap[right].frame < c.heap[left].frame {
			j = right
		}
		if c.heap[j].frame >= c.heap[i].frame {
			break
		}
		c.heap[i], c.heap[j] = c.heap[j], c.heap[i]
		i = j
	}
}

// Package progress carries run status and preview frames from a pipeline
// to whatever presents them, over two independent channels.
package progress

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

type Event struct {
	Status  string
	Percent int
	At      time.Time
}

type Frame struct {
	Index int
	At    time.Duration
	Image image.Image
}

// Bus implements ports.Progress and ports.Preview. Progress events are
// delivered in order with percent clamped to [0, 100] and never moving
// backwards. Frames are dropped when the consumer falls behind.
type Bus struct {
	mu      sync.Mutex
	closed  bool
	last    int
	frameN  int
	events  chan Event
	frames  chan Frame
	dropped atomic.Int64
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		events: make(chan Event, buffer),
		frames: make(chan Frame, buffer),
	}
}

func (b *Bus) Events() <-chan Event { return b.events }
func (b *Bus) Frames() <-chan Frame { return b.frames }

// Dropped reports how many frames were discarded.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

func (b *Bus) Progress(status string, percent int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	percent = min(max(percent, 0), 100)
	if percent < b.last {
		percent = b.last
	}
	b.last = percent
	b.events <- Event{Status: status, Percent: percent, At: time.Now()}
}

func (b *Bus) Preview(at time.Duration, frame image.Image) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.frameN++
	select {
	case b.frames <- Frame{Index: b.frameN, At: at, Image: frame}:
	default:
		b.dropped.Add(1)
	}
}

// Close ends both channels. Later sends are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
	close(b.frames)
}

package session

import (
	"log/slog"
	"sync"
	"time"
)

type transmitFunc func(pcm []byte) error

// frameBuffer coalesces small PCM chunks into frames before they go to the
// client. A flush happens when the buffered audio reaches one frame, when
// the flush timeout has elapsed since the last send, or when a caller forces
// it ahead of a non-audio message. An empty buffer never flushes.
type frameBuffer struct {
	maxBytes int
	timeout  time.Duration
	now      func() time.Time
	transmit transmitFunc
	logger   *slog.Logger

	mu        sync.Mutex
	buf       []byte
	lastFlush time.Time
}

func newFrameBuffer(maxBytes int, timeout time.Duration, now func() time.Time, transmit transmitFunc, logger *slog.Logger) *frameBuffer {
	return &frameBuffer{
		maxBytes:  maxBytes,
		timeout:   timeout,
		now:       now,
		transmit:  transmit,
		logger:    logger,
		lastFlush: now(),
	}
}

// Append adds audio and flushes immediately if a full frame is buffered.
func (b *frameBuffer) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	b.mu.Lock()
	b.buf = append(b.buf, pcm...)
	b.mu.Unlock()
	b.ConsiderFlush(false)
}

// ConsiderFlush sends the buffered audio if a flush condition holds. The
// transmit call runs outside the lock so a slow client write never blocks
// concurrent appends. Transmit failures are logged, not returned; the read
// side of the connection reports the broken transport.
func (b *frameBuffer) ConsiderFlush(force bool) {
	b.mu.Lock()
	if len(b.buf) == 0 {
		b.mu.Unlock()
		return
	}
	elapsed := b.now().Sub(b.lastFlush)
	if !force && len(b.buf) < b.maxBytes && elapsed < b.timeout {
		b.mu.Unlock()
		return
	}
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	b.buf = b.buf[:0]
	b.lastFlush = b.now()
	b.mu.Unlock()

	if err := b.transmit(out); err != nil {
		b.logger.Warn("audio flush failed", "bytes", len(out), "error", err)
	}
}

// Discard drops buffered audio without sending it, used when the user
// interrupts the agent mid-response.
func (b *frameBuffer) Discard() (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped = len(b.buf)
	b.buf = b.buf[:0]
	b.lastFlush = b.now()
	return dropped
}

func (b *frameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// SinceFlush reports how long ago the last flush happened, used by the
// timeout loop to compute its next sleep.
func (b *frameBuffer) SinceFlush() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Sub(b.lastFlush)
}

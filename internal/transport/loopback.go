package transport

import (
	"context"
	"sync"

	"github.com/danmuck/cryptochan/internal/protocol"
)

// Loopback is an in-process channel. Requests are delivered to the Handler
// registered for the handle, one at a time.
type Loopback struct {
	mu       sync.Mutex
	handlers map[Handle]Handler
	closed   bool
	scratch  [protocol.MaxMessageSize]byte
}

func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[Handle]Handler)}
}

// Register binds handler to h, replacing any previous binding.
func (l *Loopback) Register(h Handle, handler Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[h] = handler
}

func (l *Loopback) Transact(ctx context.Context, h Handle, request, response []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(request) > protocol.MaxMessageSize {
		return 0, ErrRequestTooLarge
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrChannelClosed
	}
	handler, ok := l.handlers[h]
	if !ok {
		return 0, ErrUnknownHandle
	}

	// The handler gets its own copy so it cannot alias caller memory.
	req := append([]byte(nil), request...)
	n := handler.Serve(h, req, l.scratch[:])
	if n > len(response) {
		return 0, ErrResponseTooLarge
	}
	return copy(response, l.scratch[:n]), nil
}

// Close makes every later Transact fail with ErrChannelClosed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

package transport

import (
	"context"
	"errors"
)

// Handle names one channel endpoint. It is a plain value; any number of
// clients may hold the same handle.
type Handle uint32

var (
	ErrChannelClosed    = errors.New("transport: channel closed")
	ErrUnknownHandle    = errors.New("transport: unknown handle")
	ErrRequestTooLarge  = errors.New("transport: request too large")
	ErrResponseTooLarge = errors.New("transport: response exceeds buffer")
	ErrFrameMismatch    = errors.New("transport: response frame does not match request")
)

// Transactor sends one request on handle h and blocks until the response is
// written into response. It returns the response length.
type Transactor interface {
	Transact(ctx context.Context, h Handle, request, response []byte) (int, error)
}

// TransactFunc adapts a function into a Transactor.
type TransactFunc func(ctx context.Context, h Handle, request, response []byte) (int, error)

func (f TransactFunc) Transact(ctx context.Context, h Handle, request, response []byte) (int, error) {
	return f(ctx, h, request, response)
}

// Handler serves one request on the receiving side and returns the number of
// response bytes written. A Handler always answers; protocol failures are
// encoded in the response status.
type Handler interface {
	Serve(h Handle, request, response []byte) int
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(h Handle, request, response []byte) int

func (f HandlerFunc) Serve(h Handle, request, response []byte) int {
	return f(h, request, response)
}

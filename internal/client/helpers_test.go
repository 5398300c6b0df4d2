package client

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/server"
	"github.com/danmuck/cryptochan/internal/transport"
)

const testHandle transport.Handle = 9

// countingTransactor counts calls before handing them to next.
type countingTransactor struct {
	calls atomic.Int32
	next  transport.Transactor
}

func (c *countingTransactor) Transact(ctx context.Context, h transport.Handle, request, response []byte) (int, error) {
	c.calls.Add(1)
	return c.next.Transact(ctx, h, request, response)
}

// newTestClient wires a client to an in-process server over a loopback
// channel.
func newTestClient(t *testing.T) (*Client, *countingTransactor, *server.Server) {
	t.Helper()
	srv := server.New(nil)
	lb := transport.NewLoopback()
	lb.Register(testHandle, srv)
	t.Cleanup(func() { _ = lb.Close() })
	counter := &countingTransactor{next: lb}
	return New(counter, Config{Handle: testHandle}), counter, srv
}

// cannedClient answers every transact with resp.
func cannedClient(resp []byte) (*Client, *countingTransactor) {
	counter := &countingTransactor{next: transport.TransactFunc(
		func(ctx context.Context, h transport.Handle, request, response []byte) (int, error) {
			return copy(response, resp), nil
		},
	)}
	return New(counter, Config{Handle: testHandle}), counter
}

func response(status protocol.Status, resultLen uint16, result []byte) []byte {
	out := protocol.ResponseHeader{Status: status, ResultLen: resultLen}.Encode()
	return append(out, result...)
}

func mustKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("expected kind %v, got %v (%v)", want, e.Kind, err)
	}
	return e
}

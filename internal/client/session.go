package client

import (
	"context"
	"io"
	"time"

	"github.com/danmuck/cryptochan/internal/protocol"
)

// Session is an open streaming digest on the server. It is created by Begin,
// fed by Update and closed by Finish. After Finish every call fails with a
// KindServer error carrying status session not found and wrapping
// ErrSessionFinished, without touching the transport.
//
// A Session is not safe for concurrent use.
type Session[A DigestAlgorithm] struct {
	c        *Client
	alg      A
	finished bool
}

// Begin opens a streaming digest. A server that already has a session open
// answers with session busy.
func Begin[A DigestAlgorithm](ctx context.Context, c *Client) (*Session[A], error) {
	var alg A
	if err := c.fixed(ctx, alg.ops().begin, nil, nil, nil, nil); err != nil {
		return nil, err
	}
	return &Session[A]{c: c, alg: alg}, nil
}

// Update feeds one chunk. A chunk larger than one message payload is rejected
// locally and leaves the session open.
func (s *Session[A]) Update(ctx context.Context, chunk []byte) error {
	op := s.alg.ops().update
	if s.finished {
		return s.c.done(op, time.Now(), finishedError(op))
	}
	return s.c.fixed(ctx, op, nil, nil, chunk, nil)
}

// Finish closes the session and returns the digest of everything fed to it,
// exactly A.Size() bytes. The session is finished whatever the outcome.
func (s *Session[A]) Finish(ctx context.Context) ([]byte, error) {
	op := s.alg.ops().finish
	if s.finished {
		return nil, s.c.done(op, time.Now(), finishedError(op))
	}
	s.finished = true
	out := make([]byte, s.alg.Size())
	if err := s.c.fixed(ctx, op, nil, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session[A]) Finished() bool {
	return s.finished
}

func (s *Session[A]) Algorithm() A {
	return s.alg
}

// Writer adapts the session to io.Writer. Writes are split into chunks that
// fit one message; ctx applies to every chunk.
func (s *Session[A]) Writer(ctx context.Context) io.Writer {
	return &sessionWriter[A]{ctx: ctx, s: s}
}

type sessionWriter[A DigestAlgorithm] struct {
	ctx context.Context
	s   *Session[A]
}

func (w *sessionWriter[A]) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := min(len(p), protocol.MaxPayloadSize)
		if err := w.s.Update(w.ctx, p[:n]); err != nil {
			return written, err
		}
		written += n
		p = p[n:]
	}
	return written, nil
}

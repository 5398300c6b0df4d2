package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/cryptochan/internal/observability"
	"github.com/danmuck/cryptochan/internal/protocol"
)

// transact lays out one request, sends it and returns the response bytes,
// which alias resp. Callers check payload capacity first.
func (c *Client) transact(ctx context.Context, op protocol.Op, a, b, data, resp []byte) ([]byte, error) {
	var buf [protocol.MaxMessageSize]byte
	req, err := protocol.EncodeRequest(buf[:], op, a, b, data)
	if err != nil {
		return nil, bufferTooSmall(err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	n, err := c.tr.Transact(ctx, c.handle, req, resp)
	if err != nil {
		return nil, transportError(err)
	}
	if n < 0 || n > len(resp) {
		return nil, invalidResponse(fmt.Errorf("transport reported %d bytes for a %d byte buffer", n, len(resp)))
	}
	return resp[:n], nil
}

// preflight rejects inputs that cannot share one message payload.
func preflight(lengths ...int) error {
	if !protocol.FitsPayload(lengths...) {
		return bufferTooSmall(fmt.Errorf("%w: %v > %d", errInputTooLong, lengths, protocol.MaxPayloadSize))
	}
	return nil
}

func (c *Client) fixed(ctx context.Context, op protocol.Op, a, b, data, out []byte) error {
	start := time.Now()
	if err := preflight(len(a), len(b), len(data)); err != nil {
		return c.done(op, start, err)
	}
	var buf [protocol.MaxMessageSize]byte
	resp, err := c.transact(ctx, op, a, b, data, buf[:])
	if err != nil {
		return c.done(op, start, err)
	}
	return c.done(op, start, extractFixed(resp, out))
}

func (c *Client) aead(ctx context.Context, op protocol.Op, key, nonce, data, out []byte, want int) (int, error) {
	start := time.Now()
	if err := preflight(len(key), len(nonce), len(data)); err != nil {
		return 0, c.done(op, start, err)
	}
	if want > len(out) {
		return 0, c.done(op, start, bufferTooSmall(fmt.Errorf("%w: need %d, capacity %d", errOutputShort, want, len(out))))
	}
	var buf [protocol.MaxMessageSize]byte
	resp, err := c.transact(ctx, op, key, nonce, data, buf[:])
	if err != nil {
		return 0, c.done(op, start, err)
	}
	n, err := extractVariable(resp, out)
	return n, c.done(op, start, err)
}

func (c *Client) verify(ctx context.Context, op protocol.Op, publicKey, signature, message []byte) error {
	start := time.Now()
	if err := preflight(len(publicKey), len(signature), len(message)); err != nil {
		return c.done(op, start, err)
	}
	var buf [protocol.MaxMessageSize]byte
	resp, err := c.transact(ctx, op, publicKey, signature, message, buf[:])
	if err != nil {
		return c.done(op, start, err)
	}
	return c.done(op, start, extractVerification(resp))
}

// done stamps the opcode on err and records the call.
func (c *Client) done(op protocol.Op, start time.Time, err error) error {
	elapsed := time.Since(start)
	outcome := "ok"
	var e *Error
	if errors.As(err, &e) {
		if e.Op == 0 {
			e.Op = op
		}
		outcome = e.Kind.String()
	} else if err != nil {
		outcome = "unknown"
	}
	observability.RecordClientTransact(op.String(), outcome, elapsed)

	if err != nil {
		c.log.Debug().Str("op", op.String()).Str("outcome", outcome).Dur("took", elapsed).Err(err).Msg("transact")
		return err
	}
	c.log.Debug().Str("op", op.String()).Dur("took", elapsed).Msg("transact")
	return nil
}

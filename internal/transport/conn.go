package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Conn is a Transactor over one stream connection. Each Transact writes one
// request frame and reads one response frame; concurrent callers are
// serialised. A read or write failure closes the connection for good.
type Conn struct {
	cfg    StreamConfig
	limits frame.Limits
	log    zerolog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	seq    uint64
	closed bool
}

// Dial connects to a stream channel endpoint.
func Dial(ctx context.Context, cfg StreamConfig) (*Conn, error) {
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, cfg.Network, cfg.Address)
	if err != nil {
		return nil, err
	}
	conn := rawConn
	if cfg.TLS.Enabled {
		tlsCfg, err := cfg.clientTLSConfig()
		if err != nil {
			_ = rawConn.Close()
			return nil, err
		}
		tlsConn := tls.Client(rawConn, tlsCfg)
		handshakeCtx := ctx
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			handshakeCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
			_ = rawConn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	return newConn(conn, cfg), nil
}

func newConn(conn net.Conn, cfg StreamConfig) *Conn {
	return &Conn{
		cfg:    cfg,
		limits: frame.DefaultLimits(),
		log:    logging.Component("transport.conn").With().Str("addr", cfg.Address).Logger(),
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *Conn) Transact(ctx context.Context, h Handle, request, response []byte) (int, error) {
	if len(request) > protocol.MaxMessageSize {
		return 0, ErrRequestTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return 0, c.fail(ctx, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c.seq++
	req := frame.Frame{
		Header:  frame.Header{MessageID: c.seq, Channel: uint32(h)},
		Auth:    []byte(c.cfg.Token),
		Payload: request,
	}
	if err := frame.WriteFrame(c.conn, req, c.limits); err != nil {
		return 0, c.fail(ctx, err)
	}

	resp, err := frame.ReadFrame(c.reader, c.limits)
	if err != nil {
		return 0, c.fail(ctx, err)
	}
	if resp.Header.Flags&frame.FlagIsResponse == 0 ||
		resp.Header.MessageID != c.seq ||
		resp.Header.Channel != uint32(h) {
		return 0, c.fail(ctx, ErrFrameMismatch)
	}
	if len(resp.Payload) > len(response) {
		return 0, ErrResponseTooLarge
	}
	return copy(response, resp.Payload), nil
}

// fail tears the connection down. Framing cannot be trusted after a partial
// read or write.
func (c *Conn) fail(ctx context.Context, err error) error {
	c.closed = true
	_ = c.conn.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		err = context.DeadlineExceeded
	}
	c.log.Warn().Err(err).Uint64("message_id", c.seq).Msg("channel failed")
	return errors.Join(ErrChannelClosed, err)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

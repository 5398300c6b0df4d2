package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/danmuck/cryptochan/internal/auth"
	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listener accepts stream connections and answers request frames with a
// Handler. Each connection is served in its own goroutine; ordering across
// connections is up to the Handler.
type Listener struct {
	cfg       StreamConfig
	ln        net.Listener
	handler   Handler
	validator auth.Validator
	limits    frame.Limits
	log       zerolog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Listen binds the endpoint described by cfg. When cfg.Token is set every
// request frame must carry it in the auth block.
func Listen(cfg StreamConfig, handler Handler) (*Listener, error) {
	if err := cfg.ValidateServerTransport(); err != nil {
		return nil, err
	}
	if cfg.Network == "unix" {
		if err := os.Remove(cfg.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	ln, err := net.Listen(cfg.Network, cfg.Address)
	if err != nil {
		return nil, err
	}
	if cfg.TLS.Enabled {
		tlsCfg, err := cfg.serverTLSConfig()
		if err != nil {
			_ = ln.Close()
			return nil, err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	l := &Listener{
		cfg:     cfg,
		ln:      ln,
		handler: handler,
		limits:  frame.DefaultLimits(),
		log:     logging.Component("transport.listener").With().Str("addr", ln.Addr().String()).Logger(),
		conns:   make(map[net.Conn]struct{}),
	}
	l.validator = auth.ForToken(cfg.Token)
	return l, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is done or Close is called.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	l.log.Info().Str("network", l.cfg.Network).Bool("tls", l.cfg.TLS.Enabled).Msg("listening")
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() {
				l.wg.Wait()
				return nil
			}
			return err
		}
		if !l.track(conn) {
			_ = conn.Close()
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.untrack(conn)
			l.serveConn(conn)
		}()
	}
}

func (l *Listener) serveConn(conn net.Conn) {
	connID := uuid.NewString()
	log := l.log.With().Str("conn", connID).Str("peer", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("connection opened")
	defer log.Debug().Msg("connection closed")

	reader := bufio.NewReader(conn)
	resp := make([]byte, protocol.MaxMessageSize)
	for {
		req, err := frame.ReadFrame(reader, l.limits)
		if err != nil {
			if !errors.Is(err, io.EOF) && !l.isClosed() {
				log.Warn().Err(err).Msg("read frame")
			}
			return
		}

		var n int
		if l.validator != nil {
			if err := l.validator.Validate(req.Auth); err != nil {
				log.Warn().Uint64("message_id", req.Header.MessageID).Msg("unauthorized request")
				n = protocol.EncodeResponse(resp, protocol.StatusPermissionDenied, nil)
			}
		}
		if n == 0 {
			n = l.handler.Serve(Handle(req.Header.Channel), req.Payload, resp)
		}

		out := frame.Frame{
			Header: frame.Header{
				MessageID: req.Header.MessageID,
				Channel:   req.Header.Channel,
				Flags:     frame.FlagIsResponse,
			},
			Payload: resp[:n],
		}
		if err := frame.WriteFrame(conn, out, l.limits); err != nil {
			log.Warn().Err(err).Msg("write frame")
			return
		}
	}
}

func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, conn)
	_ = conn.Close()
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops accepting and closes every open connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conns := make([]net.Conn, 0, len(l.conns))
	for conn := range l.conns {
		conns = append(conns, conn)
	}
	l.mu.Unlock()

	err := l.ln.Close()
	for _, conn := range conns {
		_ = conn.Close()
	}
	return err
}

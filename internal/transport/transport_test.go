package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/testutil/testlog"
	"github.com/danmuck/cryptochan/internal/testutil/tlstest"
)

// echoHandler answers every request with its own payload as the result.
func echoHandler() Handler {
	return HandlerFunc(func(h Handle, request, response []byte) int {
		return protocol.EncodeResponse(response, protocol.StatusSuccess, request)
	})
}

func serve(t *testing.T, cfg StreamConfig, handler Handler) *Listener {
	t.Helper()
	l, err := Listen(cfg, handler)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("listener did not stop")
		}
	})
	return l
}

func dial(t *testing.T, cfg StreamConfig) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func tcpConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Network = "tcp"
	cfg.Address = "127.0.0.1:0"
	return cfg
}

func roundTrip(t *testing.T, tr Transactor, h Handle, payload []byte) ([]byte, protocol.Status) {
	t.Helper()
	resp := make([]byte, protocol.MaxMessageSize)
	n, err := tr.Transact(context.Background(), h, payload, resp)
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	hdr, err := protocol.DecodeResponseHeader(resp[:n])
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	result, err := protocol.Result(resp[:n], hdr)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	return result, hdr.Status
}

func TestLoopbackDeliversToRegisteredHandler(t *testing.T) {
	testlog.Start(t)

	lb := NewLoopback()
	lb.Register(7, echoHandler())

	got, status := roundTrip(t, lb, 7, []byte("ping"))
	if status != protocol.StatusSuccess {
		t.Fatalf("status: %v", status)
	}
	if !bytes.Equal(got, []byte("ping")) {
		t.Fatalf("result: %q", got)
	}
}

func TestLoopbackErrors(t *testing.T) {
	testlog.Start(t)

	lb := NewLoopback()
	lb.Register(1, echoHandler())
	resp := make([]byte, protocol.MaxMessageSize)

	if _, err := lb.Transact(context.Background(), 2, []byte("x"), resp); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("unknown handle: got %v", err)
	}
	big := make([]byte, protocol.MaxMessageSize+1)
	if _, err := lb.Transact(context.Background(), 1, big, resp); !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("oversized request: got %v", err)
	}
	if _, err := lb.Transact(context.Background(), 1, []byte("hello"), resp[:4]); !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("short response buffer: got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lb.Transact(ctx, 1, []byte("x"), resp); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context: got %v", err)
	}

	_ = lb.Close()
	if _, err := lb.Transact(context.Background(), 1, []byte("x"), resp); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("closed: got %v", err)
	}
}

func TestLoopbackHandlerGetsPrivateCopy(t *testing.T) {
	testlog.Start(t)

	lb := NewLoopback()
	lb.Register(1, HandlerFunc(func(h Handle, request, response []byte) int {
		request[0] = 'X'
		return protocol.EncodeResponse(response, protocol.StatusSuccess, nil)
	}))
	req := []byte("abc")
	roundTrip(t, lb, 1, req)
	if string(req) != "abc" {
		t.Fatalf("caller request mutated: %q", req)
	}
}

func TestConnOverTCP(t *testing.T) {
	testlog.Start(t)

	l := serve(t, tcpConfig(), echoHandler())
	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	c := dial(t, cfg)

	for i, msg := range []string{"one", "two", "three"} {
		got, status := roundTrip(t, c, Handle(i), []byte(msg))
		if status != protocol.StatusSuccess || string(got) != msg {
			t.Fatalf("round %d: status=%v result=%q", i, status, got)
		}
	}
}

func TestConnOverUnixSocket(t *testing.T) {
	testlog.Start(t)

	dir, err := os.MkdirTemp("", "cc")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	cfg := DefaultStreamConfig()
	cfg.Address = filepath.Join(dir, "chan.sock")
	serve(t, cfg, echoHandler())
	c := dial(t, cfg)

	got, status := roundTrip(t, c, 3, []byte("unix"))
	if status != protocol.StatusSuccess || string(got) != "unix" {
		t.Fatalf("status=%v result=%q", status, got)
	}
}

func TestConnChannelHandleReachesHandler(t *testing.T) {
	testlog.Start(t)

	var (
		mu   sync.Mutex
		seen []Handle
	)
	handler := HandlerFunc(func(h Handle, request, response []byte) int {
		mu.Lock()
		seen = append(seen, h)
		mu.Unlock()
		return protocol.EncodeResponse(response, protocol.StatusSuccess, nil)
	})
	l := serve(t, tcpConfig(), handler)
	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	c := dial(t, cfg)

	roundTrip(t, c, 42, nil)
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != 42 {
		t.Fatalf("handles seen: %v", seen)
	}
}

func TestListenerRejectsBadToken(t *testing.T) {
	testlog.Start(t)

	var calls atomic.Int32
	handler := HandlerFunc(func(h Handle, request, response []byte) int {
		calls.Add(1)
		return protocol.EncodeResponse(response, protocol.StatusSuccess, nil)
	})
	srvCfg := tcpConfig()
	srvCfg.Token = "secret"
	l := serve(t, srvCfg, handler)

	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	cfg.Token = "wrong"
	c := dial(t, cfg)
	if _, status := roundTrip(t, c, 1, []byte("x")); status != protocol.StatusPermissionDenied {
		t.Fatalf("expected permission denied, got %v", status)
	}

	cfg.Token = "secret"
	good := dial(t, cfg)
	if _, status := roundTrip(t, good, 1, []byte("x")); status != protocol.StatusSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler calls: got %d want 1", got)
	}
}

func TestConnResponseTooLargeKeepsChannel(t *testing.T) {
	testlog.Start(t)

	l := serve(t, tcpConfig(), echoHandler())
	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	c := dial(t, cfg)

	resp := make([]byte, 4)
	if _, err := c.Transact(context.Background(), 1, []byte("too long"), resp); !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if got, _ := roundTrip(t, c, 1, []byte("ok")); string(got) != "ok" {
		t.Fatalf("channel unusable after short buffer: %q", got)
	}
}

func TestConnDeadlineClosesChannel(t *testing.T) {
	testlog.Start(t)

	release := make(chan struct{})
	handler := HandlerFunc(func(h Handle, request, response []byte) int {
		<-release
		return protocol.EncodeResponse(response, protocol.StatusSuccess, nil)
	})
	l := serve(t, tcpConfig(), handler)
	t.Cleanup(func() { close(release) })
	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	c := dial(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	resp := make([]byte, protocol.MaxMessageSize)
	_, err := c.Transact(ctx, 1, []byte("x"), resp)
	if !errors.Is(err, ErrChannelClosed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected closed channel with deadline, got %v", err)
	}
	if _, err := c.Transact(context.Background(), 1, []byte("x"), resp); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed after failure, got %v", err)
	}
}

func TestConnOverMutualTLS(t *testing.T) {
	testlog.Start(t)

	ca := tlstest.NewAuthority(t, "cryptochan-test-ca")
	srvPair := ca.Server(t, "cryptod")
	cliPair := ca.Client(t, "cryptoctl")

	srvCfg := tcpConfig()
	srvCfg.SecurityMode = SecurityModeProduction
	srvCfg.TLS = TLSConfig{
		Enabled:  true,
		Mutual:   true,
		CAFile:   ca.CAFile(),
		CertFile: srvPair.CertFile,
		KeyFile:  srvPair.KeyFile,
	}
	l := serve(t, srvCfg, echoHandler())

	cfg := tcpConfig()
	cfg.Address = l.Addr().String()
	cfg.SecurityMode = SecurityModeProduction
	cfg.TLS = TLSConfig{
		Enabled:  true,
		Mutual:   true,
		CAFile:   ca.CAFile(),
		CertFile: cliPair.CertFile,
		KeyFile:  cliPair.KeyFile,
	}
	c := dial(t, cfg)

	got, status := roundTrip(t, c, 1, []byte("sealed"))
	if status != protocol.StatusSuccess || string(got) != "sealed" {
		t.Fatalf("status=%v result=%q", status, got)
	}
}

func TestTransportValidation(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		mutate  func(*StreamConfig)
		server  bool
		wantErr error
	}{
		{name: "bad network", mutate: func(c *StreamConfig) { c.Network = "udp" }, wantErr: ErrInvalidNetwork},
		{name: "empty address", mutate: func(c *StreamConfig) { c.Address = " " }, wantErr: ErrAddressRequired},
		{name: "bad mode", mutate: func(c *StreamConfig) { c.SecurityMode = "strict" }, wantErr: ErrInvalidSecurityMode},
		{name: "production needs tls", mutate: func(c *StreamConfig) { c.SecurityMode = SecurityModeProduction }, wantErr: ErrTLSRequired},
		{
			name: "production needs mtls",
			mutate: func(c *StreamConfig) {
				c.SecurityMode = SecurityModeProduction
				c.TLS = TLSConfig{Enabled: true, CAFile: "ca.crt"}
			},
			wantErr: ErrMTLSRequired,
		},
		{name: "client tls needs ca", mutate: func(c *StreamConfig) { c.TLS.Enabled = true }, wantErr: ErrTLSCAFileRequired},
		{name: "server tls needs cert", mutate: func(c *StreamConfig) { c.TLS.Enabled = true }, server: true, wantErr: ErrTLSCertFileRequired},
		{name: "dev default ok", mutate: func(c *StreamConfig) {}, wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultStreamConfig()
			tc.mutate(&cfg)
			var err error
			if tc.server {
				err = cfg.ValidateServerTransport()
			} else {
				err = cfg.ValidateClientTransport()
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

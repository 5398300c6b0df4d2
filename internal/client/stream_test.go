package client

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/server"
	"github.com/danmuck/cryptochan/internal/testutil/testlog"
	"github.com/danmuck/cryptochan/internal/transport"
)

func TestClientOverStreamChannel(t *testing.T) {
	testlog.Start(t)

	srvCfg := transport.DefaultStreamConfig()
	srvCfg.Network = "tcp"
	srvCfg.Address = "127.0.0.1:0"
	srvCfg.Token = "stream-secret"
	l, err := transport.Listen(srvCfg, server.New(nil))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cliCfg := srvCfg
	cliCfg.Address = l.Addr().String()
	conn, err := transport.Dial(ctx, cliCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := New(conn, Config{Handle: 1, Timeout: 5 * time.Second})
	data := []byte("over the wire")
	got, err := c.SHA256(ctx, data)
	if err != nil || got != sha256.Sum256(data) {
		t.Fatalf("sha256: %v", err)
	}

	s, err := c.SHA256Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.Update(ctx, data); err != nil {
		t.Fatalf("update: %v", err)
	}
	digest, err := s.Finish(ctx)
	if err != nil || string(digest) != string(got[:]) {
		t.Fatalf("finish: %v", err)
	}

	bad := cliCfg
	bad.Token = "guess"
	badConn, err := transport.Dial(ctx, bad)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = badConn.Close() })
	_, err = New(badConn, Config{Handle: 1}).SHA256(ctx, data)
	if e := mustKind(t, err, KindServer); e.Status != protocol.StatusPermissionDenied {
		t.Fatalf("status: %v", e.Status)
	}
}

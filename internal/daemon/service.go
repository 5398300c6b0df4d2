// Package daemon runs cryptod: the channel listener, the request server and
// the optional admin surface.
package daemon

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/cryptochan/internal/admin"
	"github.com/danmuck/cryptochan/internal/config"
	"github.com/danmuck/cryptochan/internal/logging"
	"github.com/danmuck/cryptochan/internal/server"
	"github.com/danmuck/cryptochan/internal/transport"
	"github.com/rs/zerolog"
)

type Service struct {
	cfg    config.ServerConfig
	server *server.Server
	admin  *admin.Admin
	log    zerolog.Logger
}

func NewService(cfg config.ServerConfig) *Service {
	srv := server.New(nil)
	log := logging.Component("daemon")
	return &Service{
		cfg:    cfg,
		server: srv,
		admin:  admin.New(srv, log, cfg.AdminCORSOrigins),
		log:    log,
	}
}

func (s *Service) Server() *server.Server {
	return s.server
}

// Run serves until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext binds the channel and admin endpoints and serves until ctx is
// done or one of them fails.
func (s *Service) RunContext(ctx context.Context) error {
	ln, err := transport.Listen(s.cfg.Stream, s.server)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("network", s.cfg.Stream.Network).
		Str("addr", ln.Addr().String()).
		Str("security", string(transport.NormalizeSecurityMode(s.cfg.Stream.SecurityMode))).
		Bool("tls", s.cfg.Stream.TLS.Enabled).
		Msg("channel listening")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adminErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.AdminAddress); addr != "" {
		adminLn, err := net.Listen("tcp", addr)
		if err != nil {
			_ = ln.Close()
			return err
		}
		go func() {
			adminErr <- s.admin.Serve(ctx, adminLn)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ln.Serve(ctx)
	}()
	s.admin.SetReady(true)
	defer s.admin.SetReady(false)

	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		cancel()
		return errors.Join(err, <-serveErr)
	}
}

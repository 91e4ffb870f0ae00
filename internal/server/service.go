package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/packetd/internal/observability"
	"github.com/danmuck/packetd/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var ErrListenAddrRequired = errors.New("server: listen addr required")

// ServiceConfig configures the packet listener and optional admin endpoint.
type ServiceConfig struct {
	ListenAddr string
	// AdminAddr serves /health, /ready, /metrics and /ws when set.
	AdminAddr string
	Session   session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr: "127.0.0.1:3444",
		AdminAddr:  "",
		Session:    session.DefaultConfig(),
	}
}

func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return ErrListenAddrRequired
	}
	return c.Session.Validate()
}

// Service accepts client connections and drives one session.Conn per connection.
type Service struct {
	cfg        ServiceConfig
	dispatcher *session.Dispatcher
	started    time.Time

	connsMu sync.Mutex
	conns   map[io.Closer]struct{}
	active  atomic.Int64
	ready   atomic.Bool
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	cfg.Session = cfg.Session.WithDefaults()
	return &Service{
		cfg:        cfg,
		dispatcher: session.NewDefaultDispatcher(),
		started:    time.Now(),
		conns:      make(map[io.Closer]struct{}),
	}
}

// Dispatcher exposes the handler table so callers can register packet kinds.
func (s *Service) Dispatcher() *session.Dispatcher {
	return s.dispatcher
}

func (s *Service) ActiveConnections() int64 {
	return s.active.Load()
}

// Run listens on the configured address and blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *Service) RunContext(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	observability.RegisterMetrics()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("server.Service listening")

	adminErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.AdminAddr); addr != "" {
		go func() {
			adminErr <- s.serveAdmin(ctx, addr)
		}()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		if err != nil {
			cancel()
			<-serveErr
			return err
		}
		return <-serveErr
	}
}

// Serve runs the accept loop on ln until ctx is done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	s.ready.Store(true)
	defer s.ready.Store(false)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	s.serveStream(ctx, conn, conn.RemoteAddr().String(), "tcp")
}

// serveStream drives one Conn to completion; errors stay scoped to it.
func (s *Service) serveStream(ctx context.Context, stream session.Stream, remote, transport string) {
	active := s.active.Add(1)
	observability.RecordConnOpened(transport)
	log.Info().Str("remote", remote).Str("transport", transport).Int64("active_clients", active).Msg("server client connected")
	defer func() {
		remaining := s.active.Add(-1)
		observability.RecordConnClosed()
		log.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("server client disconnected")
	}()

	c := session.NewConn(stream, remote, s.dispatcher, s.cfg.Session)
	if err := c.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Warn().Str("remote", remote).Err(err).Msg("server connection closed with error")
	}
}

func (s *Service) trackConn(conn io.Closer) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Service) untrackConn(conn io.Closer) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}

func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("server admin listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: admin: %w", err)
	}
	return nil
}

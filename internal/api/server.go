package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/logger"
)

// ServerOptions configures the listener and the http.Server timeouts
type ServerOptions struct {
	Addr            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// OptionsFromConfig builds server options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) ServerOptions {
	return ServerOptions{
		Addr:            ":" + cfg.Port,
		Env:             cfg.Env,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

// Server serves the ranking API until its context ends
// ⭐ SSOT: API 서버 수명주기는 이 파일에서만
type Server struct {
	opts   ServerOptions
	http   *http.Server
	logger *logger.Logger

	ready chan struct{}
	once  sync.Once
	addr  net.Addr
}

// NewServer creates a server for handler. Nothing listens until Run.
func NewServer(opts ServerOptions, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		opts: opts,
		http: &http.Server{
			Handler:      handler,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		logger: log,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the listener is bound
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready.
func (s *Server) Addr() string {
	if s.addr == nil {
		return s.opts.Addr
	}
	return s.addr.String()
}

// Port returns the bound TCP port, or 0 before Ready
func (s *Server) Port() int {
	if tcp, ok := s.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Run binds the listener and serves until ctx is cancelled, then drains
// in-flight requests for at most ShutdownTimeout. A clean shutdown
// returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	s.addr = ln.Addr()
	s.once.Do(func() { close(s.ready) })

	s.logger.WithFields(map[string]interface{}{
		"addr": s.Addr(),
		"env":  s.opts.Env,
	}).Info("API server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.WithField("timeout", s.opts.ShutdownTimeout).Info("Draining API server")

	shutdownCtx := context.Background()
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.http.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh

	s.logger.Info("API server stopped")
	return nil
}

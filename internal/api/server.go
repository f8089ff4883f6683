package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server runs one handler on a plaintext listener and a TLS listener.
type Server struct {
	handler   http.Handler
	tlsConfig *tls.Config
	logger    *slog.Logger

	plain  *http.Server
	secure *http.Server

	httpLn  net.Listener
	httpsLn net.Listener
}

// NewServer creates a server for handler. tlsConfig must carry the
// certificate for the encrypted listener.
func NewServer(handler http.Handler, tlsConfig *tls.Config) *Server {
	return &Server{
		handler:   handler,
		tlsConfig: tlsConfig,
		logger:    slog.With("component", "api"),
		plain:     &http.Server{Handler: handler},
		secure:    &http.Server{Handler: handler, TLSConfig: tlsConfig},
	}
}

// Listen binds both listeners. If the second bind fails the first is released.
func (s *Server) Listen(httpAddr, httpsAddr string) error {
	if s.tlsConfig == nil || len(s.tlsConfig.Certificates) == 0 {
		return errors.New("no TLS certificate configured")
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("binding HTTP listener on %s: %w", httpAddr, err)
	}
	httpsLn, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		httpLn.Close()
		return fmt.Errorf("binding HTTPS listener on %s: %w", httpsAddr, err)
	}

	s.httpLn = httpLn
	s.httpsLn = httpsLn
	s.logger.Info("HTTP server running", "port", s.HTTPPort(), "addr", httpLn.Addr().String())
	s.logger.Info("HTTPS server running", "port", s.HTTPSPort(), "addr", httpsLn.Addr().String())
	return nil
}

// HTTPPort returns the bound plaintext port, or 0 before Listen.
func (s *Server) HTTPPort() int {
	return listenerPort(s.httpLn)
}

// HTTPSPort returns the bound TLS port, or 0 before Listen.
func (s *Server) HTTPSPort() int {
	return listenerPort(s.httpsLn)
}

// Serve serves both listeners until ctx is cancelled or either one fails,
// then shuts both down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.httpLn == nil || s.httpsLn == nil {
		return errors.New("server is not listening")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreClosed(s.plain.Serve(s.httpLn))
	})
	g.Go(func() error {
		// Certificates come from TLSConfig, so no files are passed here.
		return ignoreClosed(s.secure.ServeTLS(s.httpsLn, "", ""))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := errors.Join(s.plain.Shutdown(shutdownCtx), s.secure.Shutdown(shutdownCtx))
		s.logger.Info("servers stopped")
		return err
	})

	return g.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func listenerPort(ln net.Listener) int {
	if ln == nil {
		return 0
	}
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

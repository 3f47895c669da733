// Package server runs the HTTP listener in front of the file handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// StartupError reports a failure which prevents the server from serving at
// all, such as an address already in use. It is fatal: Run leaves nothing
// running when it returns one.
type StartupError struct {
	Addr string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("listening on %s: %v", e.Addr, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Server binds an address and serves a handler until its context is
// cancelled.
type Server struct {
	// Addr is the host:port address to listen on.
	Addr string
	// Handler answers every request.
	Handler http.Handler
	// ShutdownTimeout bounds the time in-flight requests are given to
	// complete once shutdown starts. Zero waits for them indefinitely.
	// Connections still open when it expires are closed and Run still
	// returns nil.
	ShutdownTimeout time.Duration
	// OnListen, when set, is called once the listening socket is open.
	OnListen func(addr net.Addr)
	// Logger receives errors from the HTTP server. Nil uses log.Default().
	Logger *log.Logger
}

// Run listens on s.Addr and serves requests until ctx is cancelled. On
// cancellation it stops accepting connections, waits for in-flight requests
// and closes the listener, then returns nil. Bind failures are returned as
// *StartupError.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return &StartupError{Addr: s.Addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but serves on an existing listener, which it closes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	srv := &http.Server{
		Handler:  s.Handler,
		ErrorLog: logger,
	}

	if s.OnListen != nil {
		s.OnListen(ln.Addr())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx := context.Background()
		if s.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.ShutdownTimeout)
			defer cancel()
		}
		err := srv.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Printf("shutdown timeout of %s exceeded, closing remaining connections", s.ShutdownTimeout)
			srv.Close()
			return nil
		}
		if err != nil {
			srv.Close()
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})
	return g.Wait()
}

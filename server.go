package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Server owns the listening socket, a fixed-capacity connection-admission
// semaphore, the shared Store, and the janitor. Its accept loop follows a
// permit-first-then-accept discipline (spec §4.5): a permit is acquired
// before Accept is even called, so backpressure lands on the kernel's
// listen backlog rather than on an ever-growing set of spawned handlers.
//
// The admission semaphore itself is a buffered channel, the same shape as
// other_examples' tcpHandler.connectionSemaphore — acquired by sending into
// it before Accept, released by receiving from it when a handler returns,
// including on panic (via defer), matching that file's acquire/release
// discipline.
type Server struct {
	config *Config
	store  *Store
	logger zerolog.Logger

	listener net.Listener
	permits  chan struct{}
	stats    *Stats
	bufPool  *BytePool

	cancel context.CancelFunc
}

// NewServer builds a Server bound to store and config, but does not start
// listening yet — call Start for that.
func NewServer(config *Config, store *Store, logger zerolog.Logger) *Server {
	return &Server{
		config:  config,
		store:   store,
		logger:  logger,
		permits: make(chan struct{}, config.MaxConnections),
		stats:   &Stats{},
		bufPool: NewBytePool(),
	}
}

// Start binds the listener, launches the janitor, and runs the accept loop
// until ctx is canceled or the listener suffers a non-recoverable error.
// Start blocks for the life of the server; call it from a goroutine if the
// caller needs to do other work (such as waiting on a shutdown signal).
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("bytekv: failed to bind %s: %w", address, err)
	}
	s.listener = listener

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info().Str("addr", address).Msg("bytekv server listening")

	janitor := NewJanitor(s.store, s.config.JanitorInterval, s.logger)
	go janitor.Run(runCtx)

	go func() {
		<-runCtx.Done()
		listener.Close()
	}()

	return s.acceptLoop(runCtx)
}

// Stop cancels the janitor and the accept loop's context and closes the
// listener. In-flight handlers are not force-closed; each returns on its
// own once its connection errors or the peer disconnects.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	snap := s.stats.Snapshot()
	s.logger.Info().
		Uint64("connections", snap.Connections).
		Uint64("get_ops", snap.GetOps).
		Uint64("set_ops", snap.SetOps).
		Uint64("ping_ops", snap.PingOps).
		Uint64("hits", snap.Hits).
		Uint64("misses", snap.Misses).
		Msg("bytekv server stats at shutdown")
}

// Addr returns the bound listener address. Only valid after Start has run
// far enough to bind; used by tests that bind to ":0" and need the chosen
// port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s.permits <- struct{}{}:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			<-s.permits // release the unused permit

			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn().Err(err).Msg("transient accept error, retrying")
				time.Sleep(10 * time.Millisecond)
				continue
			}

			s.logger.Error().Err(err).Msg("fatal accept error")
			return err
		}

		s.stats.incConnections()
		go func() {
			defer func() { <-s.permits }()
			s.handleConnection(conn)
		}()
	}
}

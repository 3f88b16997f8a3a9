package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theflywheel/kek/internal/store"
)

// Server accepts TCP connections and serves each with its own
// connHandler against a shared Table.
type Server struct {
	table    *store.Table
	log      *zap.Logger
	listener net.Listener

	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// New wraps table in a Server bound to addr. The listener is opened
// immediately so the caller can observe bind failures before Serve.
func New(addr string, table *store.Table, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	return &Server{
		table:    table,
		log:      log,
		listener: lis,
		done:     make(chan struct{}),
	}, nil
}

// Addr returns the server's bound address, useful when addr was ":0".
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve runs the accept loop until ctx is canceled, then stops
// accepting new connections and waits for in-flight handlers to drain
// their current request before returning.
func (s *Server) Serve(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	group.Go(func() error {
		defer s.shutdown()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.done:
					return nil
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("server: accept: %w", err)
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				h := &connHandler{conn: conn, table: s.table, log: s.log}
				h.serve(s.done)
			}()
		}
	})

	err := group.Wait()
	s.wg.Wait()
	return err
}

// shutdown closes the listener (unblocking Accept) and signals every
// running connHandler to stop at its next request boundary. Safe to
// call more than once or concurrently.
func (s *Server) shutdown() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.listener.Close()
	})
}

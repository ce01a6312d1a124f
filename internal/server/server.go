package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// readQueue bounds how many decoded commands wait for execution per connection
const readQueue = 64

// Server accepts RESP connections and runs every client on its own goroutine
type Server struct {
	engine *Engine
	logger *zap.Logger

	mu      sync.Mutex
	ln      net.Listener
	peers   map[*Peer]struct{}
	entropy io.Reader

	closing atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a server executing commands on engine
func NewServer(engine *Engine, logger *zap.Logger) *Server {
	return &Server{
		engine:  engine,
		logger:  logger,
		peers:   make(map[*Peer]struct{}),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// ListenAndServe listens on the TCP address and serves until Shutdown
func (s *Server) ListenAndServe(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("listening on", zap.String("address", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) && s.closing.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}

		peer := NewPeer(conn)
		s.mu.Lock()
		if s.closing.Load() {
			s.mu.Unlock()
			peer.Close() //nolint:errcheck
			continue
		}
		s.peers[peer] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handle(peer)
	}
}

// Addr returns the listening address, nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, stops reading from clients and waits until
// the commands already read are answered or ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	if s.ln != nil {
		s.ln.Close() //nolint:errcheck
	}
	for p := range s.peers {
		p.CloseRead() //nolint:errcheck
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all connections closed gracefully")
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for p := range s.peers {
			p.Close() //nolint:errcheck
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Server) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

type request struct {
	value resp.Value
	err   error
}

// handle serves a single client. A reader goroutine decodes commands so that a blocked
// command notices the client going away through the session context
func (s *Server) handle(peer *Peer) {
	sess := s.engine.OnConnect(s.nextID(), peer)
	log := s.logger.With(zap.String("session", sess.ID()))

	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", peer.RemoteAddr()))
	}

	defer func() {
		s.engine.OnDisconnect(sess)
		peer.Close() //nolint:errcheck

		s.mu.Lock()
		delete(s.peers, peer)
		s.mu.Unlock()
		s.wg.Done()

		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", peer.RemoteAddr()))
		}
	}()

	requests := make(chan request, readQueue)
	go s.read(peer, sess, requests, log)

	for req := range requests {
		if req.err != nil {
			peer.Send(resp.MakeError("ERR Protocol error: " + req.err.Error())) //nolint:errcheck
			peer.Flush()                                                          //nolint:errcheck
			return
		}

		v := req.value
		if v.Type != resp.TypeArray {
			log.Warn("invalid request type", zap.String("type", string(v.Type)))
			continue
		}
		if len(v.Array) == 0 {
			continue
		}

		reply := s.execute(sess, string(v.Array[0].String), v.Array[1:], log)
		if err := peer.Send(reply); err != nil {
			log.Error("error writing response", zap.Error(err))
			return
		}

		// pipelined commands are answered with one write
		if len(requests) == 0 || sess.Closing() {
			if err := peer.Flush(); err != nil {
				return
			}
		}
		if sess.Closing() {
			return
		}
	}
}

// read decodes commands until the connection fails. A protocol error is handed over and ends the stream
func (s *Server) read(peer *Peer, sess *Session, requests chan<- request, log *zap.Logger) {
	defer close(requests)
	defer sess.cancel()

	for {
		v, err := peer.ReadCommand()
		if err != nil {
			switch {
			case errors.Is(err, resp.ErrInvalidEnding), errors.Is(err, resp.ErrInvalidLength), errors.Is(err, resp.ErrInvalidInteger):
				select {
				case requests <- request{err: err}:
				case <-sess.Context().Done():
				}
			case !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed):
				log.Debug("read command failed", zap.Error(err))
			}
			return
		}

		select {
		case requests <- request{value: v}:
		case <-sess.Context().Done():
			return
		}
	}
}

// execute runs one command, a panicking handler costs the client an error reply instead of the process
func (s *Server) execute(sess *Session, name string, args []resp.Value, log *zap.Logger) (reply resp.Value) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("command panicked",
				zap.String("cmd", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			reply = resp.MakeError("ERR internal error")
		}
	}()
	return s.engine.Execute(sess, name, args)
}

package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net/packet"
)

// Server accepts TCP connections and runs each session in its own
// goroutine. onClose runs after a session's Run returns, no matter how
// the connection died; the handler layer injects disconnect cleanup
// through it.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	registry *packet.Registry
	opts     SessionOptions
	onClose  func(*Session)
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session

	closeCh chan struct{}
}

func NewServer(bindAddr string, reg *packet.Registry, opts SessionOptions, onClose func(*Session), log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		registry: reg,
		opts:     opts,
		onClose:  onClose,
		log:      log,
		sessions: make(map[uint64]*Session),
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)

		s.mu.Lock()
		s.sessions[id] = sess
		s.mu.Unlock()

		s.log.Info(fmt.Sprintf("玩家連線  session=%d  ip=%s", id, sess.IP))
		go s.runSession(sess)
	}
}

func (s *Server) runSession(sess *Session) {
	defer func() {
		sess.Close()
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		if s.onClose != nil {
			s.onClose(sess)
		}
		s.log.Info(fmt.Sprintf("玩家斷線  session=%d  ip=%s", sess.ID, sess.IP))
	}()

	if err := sess.Start(); err != nil {
		s.log.Warn("初始封包發送失敗", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	sess.Run(s.registry)
}

// Sessions returns a snapshot of the live sessions, for shutdown saves.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of live sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting new connections. Live sessions keep running
// until closed individually.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

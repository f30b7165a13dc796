package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/config"
)

// Server accepts websocket connections and creates Sessions.
// New sessions are handed to the game loop via a channel.
type Server struct {
	cfg      config.NetworkConfig
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	log      *zap.Logger
}

func NewServer(cfg config.NetworkConfig, log *zap.Logger) *Server {
	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newConns: make(chan *Session, 64),
		log:      log,
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, s.Handler())
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: cfg.ReadTimeout}
	return s
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.BindAddress, err)
	}
	s.listener = ln
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http serve", zap.Error(err))
		}
	}()
	return nil
}

// Handler upgrades a request to a websocket, starts its session and queues
// it for the game loop.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("upgrade failed", zap.Error(err))
			return
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.cfg, s.log)
		sess.Start()

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("connection queue full, rejecting")
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Addr returns the listener's address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

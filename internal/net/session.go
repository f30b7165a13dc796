package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/config"
	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net/packet"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines. The session is also the entity's game.EventHandler,
// so Send may be called from several tick workers at once.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads messages from here
	OutQueue chan []byte // writer goroutine reads from here

	IP string

	// Set by the hello handler; game loop only.
	Entity ecs.EntityID
	Name   string

	mu      sync.Mutex
	outBuf  [][]byte // flushed by the output system
	leaving bool     // closed once the buffer is flushed

	readTimeout  time.Duration
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

var _ game.EventHandler = (*Session)(nil)

func NewSession(conn *websocket.Conn, id uint64, cfg config.NetworkConfig, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, cfg.InQueueSize),
		OutQueue:     make(chan []byte, cfg.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("session", id)),
	}
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a message. Nothing is written until FlushOutput.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.outBuf = append(s.outBuf, data)
	s.mu.Unlock()
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. If OutQueue is full the session is dropped. A session marked
// leaving is closed after its last message is written.
func (s *Session) FlushOutput() {
	s.mu.Lock()
	buf := s.outBuf
	s.outBuf = nil
	leaving := s.leaving
	s.mu.Unlock()

	for _, data := range buf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow client")
			s.Close()
			return
		}
	}
	if leaving {
		select {
		case s.OutQueue <- nil:
		default:
			s.Close()
		}
	}
}

// Leaving reports whether the game has already removed this session's entity.
func (s *Session) Leaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaving
}

// Close shuts the session down immediately.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop pushes every text message onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetPongHandler(func(string) error {
		return s.extendReadDeadline()
	})
	for {
		if err := s.extendReadDeadline(); err != nil {
			return
		}
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		// Block rather than drop: a lost move would desync the client.
		select {
		case s.InQueue <- data:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) extendReadDeadline() error {
	if s.readTimeout <= 0 {
		return nil
	}
	return s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
}

// writeLoop writes queued messages and keeps the connection alive with pings.
// A nil message ends the session with a normal close frame.
func (s *Session) writeLoop() {
	defer s.Close()

	var ping <-chan time.Time
	if s.readTimeout > 0 {
		t := time.NewTicker(s.readTimeout * 9 / 10)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case data := <-s.OutQueue:
			if data == nil {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
				_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			if !s.write(websocket.TextMessage, data) {
				return
			}
		case <-ping:
			if !s.write(websocket.PingMessage, nil) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) write(typ int, data []byte) bool {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteMessage(typ, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}

// game.EventHandler

func (s *Session) Init(info game.InitInfo)        { s.Send(packet.Init(info)) }
func (s *Session) SeePlayer(info game.PlayerInfo) { s.Send(packet.SeePlayer(info)) }

// Disconnect is the entity's last notification; the session closes after
// the next flush.
func (s *Session) Disconnect() {
	s.Send(packet.Disconnect())
	s.mu.Lock()
	s.leaving = true
	s.mu.Unlock()
}

func (s *Session) SeeDisappear(id ecs.EntityID)       { s.Send(packet.SeeDisappear(id)) }
func (s *Session) SeeBeginMove(info game.MoveInfo)    { s.Send(packet.SeeBeginMove(info)) }
func (s *Session) SeeCrossCellBorder(id ecs.EntityID) { s.Send(packet.SeeCrossCellBorder(id)) }
func (s *Session) SeeStop(id ecs.EntityID)            { s.Send(packet.SeeStop(id)) }
func (s *Session) SeeBeginCast(info game.CastInfo)    { s.Send(packet.SeeBeginCast(info)) }
func (s *Session) SeeEndCast(id ecs.EntityID)         { s.Send(packet.SeeEndCast(id)) }
func (s *Session) SeeEffect(e game.Effect)            { s.Send(packet.SeeEffect(e)) }
func (s *Session) HealthChange(health int)            { s.Send(packet.HealthChange(health)) }

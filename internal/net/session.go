package net

import (
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/world"
)

// firstPacket is the fixed magic blob every 3.80C client expects in the
// handshake init packet, right after the cipher seed.
var firstPacket = [11]byte{0x9d, 0xd1, 0xd6, 0x7a, 0xf4, 0x62, 0xe7, 0xa0, 0x66, 0x02, 0xfa}

// SessionOptions are the per-connection tunables, taken from config.
type SessionOptions struct {
	InQueueSize      int
	OutQueueSize     int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PacketsPerSecond int // 0 disables the limiter
}

// Session is one client connection. A dedicated goroutine reads frames
// off the socket into readCh; the session's own goroutine (Run) multiplexes
// between those and broadcast deliveries from other connections, so all
// handler logic stays single-threaded per connection.
type Session struct {
	ID   uint64
	IP   string
	conn net.Conn

	codec Codec
	seed  int32
	state atomic.Int32
	log   *zap.Logger

	readCh    chan []byte
	deliverCh chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	readTimeout  time.Duration
	writeTimeout time.Duration

	pktPerSec int
	rateCount int
	rateStart time.Time

	// Game state owned by this connection's goroutine. The registry holds
	// the shared snapshot; nothing else reads these.
	Account string
	Char    *world.ActiveChar
}

var _ world.Deliverer = (*Session)(nil)

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	seed := rand.Int31n(0x7FFFFFFE) + 1
	s := &Session{
		ID:           id,
		IP:           conn.RemoteAddr().String(),
		conn:         conn,
		codec:        NewCipher(seed),
		seed:         seed,
		log:          log,
		readCh:       make(chan []byte, opts.InQueueSize),
		deliverCh:    make(chan []byte, opts.OutQueueSize),
		closeCh:      make(chan struct{}),
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		pktPerSec:    opts.PacketsPerSecond,
		rateStart:    time.Now(),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

// Start sends the unencrypted handshake frame:
// [2B LE length=18][1B opcode=150][4B LE seed][11B firstPacket].
// Everything after this frame is encrypted in both directions.
func (s *Session) Start() error {
	buf := make([]byte, 18)
	binary.LittleEndian.PutUint16(buf[0:2], 18)
	buf[2] = packet.S_OPCODE_INITPACKET
	binary.LittleEndian.PutUint32(buf[3:7], uint32(s.seed))
	copy(buf[7:18], firstPacket[:])

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(buf); err != nil {
		return err
	}
	return nil
}

// Run processes the session until the connection dies: client packets are
// dispatched through reg in this goroutine, broadcast deliveries are
// written out between them. Cleanup is the caller's job after Run returns.
func (s *Session) Run(reg *packet.Registry) {
	go s.readLoop()
	for {
		select {
		case data, ok := <-s.readCh:
			if !ok {
				return
			}
			if err := reg.Dispatch(s, s.State(), data); err != nil {
				s.log.Debug("封包處理失敗",
					zap.Uint64("session", s.ID),
					zap.Error(err),
				)
			}
		case payload := <-s.deliverCh:
			s.writePacket(payload)
		case <-s.closeCh:
			return
		}
	}
}

// readLoop owns all socket reads: frame header, length check, payload,
// decrypt, rate limit. A malformed length is fail-closed; the connection
// dies without salvage.
func (s *Session) readLoop() {
	defer close(s.readCh)
	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		var header [2]byte
		if _, err := io.ReadFull(s.conn, header[:]); err != nil {
			s.logReadEnd(err)
			return
		}
		n, err := s.codec.DecodeLength(header)
		if err != nil {
			s.log.Warn("封包長度異常，斷開連線",
				zap.Uint64("session", s.ID),
				zap.Error(err),
			)
			s.Close()
			return
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			s.logReadEnd(err)
			return
		}
		payload = s.codec.Decrypt(payload)

		if !s.allowPacket() {
			s.log.Warn("封包速率超限，斷開連線", zap.Uint64("session", s.ID))
			s.Close()
			return
		}

		select {
		case s.readCh <- payload:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) logReadEnd(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		s.log.Debug("客戶端斷線", zap.Uint64("session", s.ID))
		return
	}
	s.log.Debug("連線讀取失敗", zap.Uint64("session", s.ID), zap.Error(err))
}

// allowPacket enforces the per-second packet budget. Only the read loop
// touches the counters.
func (s *Session) allowPacket() bool {
	if s.pktPerSec <= 0 {
		return true
	}
	now := time.Now()
	if now.Sub(s.rateStart) >= time.Second {
		s.rateStart = now
		s.rateCount = 0
	}
	s.rateCount++
	return s.rateCount <= s.pktPerSec
}

// Send writes a built packet to this session's client. Handlers run in
// the session goroutine, so this writes directly.
func (s *Session) Send(w *packet.Writer) {
	s.writePacket(w.Bytes())
}

// Deliver queues a broadcast payload without blocking. A connection that
// cannot drain its bounded queue is disconnected instead of stalling the
// broadcaster behind it.
func (s *Session) Deliver(payload []byte) {
	select {
	case s.deliverCh <- payload:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線", zap.Uint64("session", s.ID))
		s.Close()
	}
}

// writePacket pads, encrypts and frames one payload, then writes it.
// Encrypt works in place and broadcast payloads are shared between
// sessions, so it always operates on a private padded copy.
func (s *Session) writePacket(payload []byte) {
	if len(payload) == 0 {
		return
	}
	padded := (len(payload) + 3) &^ 3
	buf := make([]byte, padded)
	copy(buf, payload)
	buf = s.codec.Encrypt(buf)
	frame := s.codec.EncodeFrame(buf)

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(frame); err != nil {
		s.log.Debug("封包寫入失敗", zap.Uint64("session", s.ID), zap.Error(err))
		s.Close()
	}
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Close shuts the socket down exactly once. The read loop unblocks with
// an error and Run returns shortly after.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
	})
}

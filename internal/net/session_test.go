package net

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linworld/server/internal/net/packet"
)

func testOptions() SessionOptions {
	return SessionOptions{
		InQueueSize:  16,
		OutQueueSize: 4,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// clientEnd wraps the client side of a pipe with the cipher derived from
// the handshake, mirroring what the real client does.
type clientEnd struct {
	conn   net.Conn
	cipher *Cipher
}

func dialTestSession(t *testing.T, opts SessionOptions) (*Session, *clientEnd) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, 1, opts, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- sess.Start() }()

	init := make([]byte, 18)
	_, err := io.ReadFull(clientConn, init)
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Equal(t, uint16(18), binary.LittleEndian.Uint16(init[0:2]))
	require.Equal(t, packet.S_OPCODE_INITPACKET, init[2])
	seed := int32(binary.LittleEndian.Uint32(init[3:7]))
	require.Greater(t, seed, int32(0))
	require.Equal(t, firstPacket[:], init[7:18])

	t.Cleanup(func() { sess.Close(); clientConn.Close() })
	return sess, &clientEnd{conn: clientConn, cipher: NewCipher(seed)}
}

// send encrypts and frames one client packet.
func (c *clientEnd) send(t *testing.T, payload []byte) {
	t.Helper()
	padded := (len(payload) + 3) &^ 3
	buf := make([]byte, padded)
	copy(buf, payload)
	c.cipher.Encrypt(buf)
	_, err := c.conn.Write(EncodeFrame(buf))
	require.NoError(t, err)
}

// recv reads and decrypts one server packet.
func (c *clientEnd) recv(t *testing.T) []byte {
	t.Helper()
	var header [2]byte
	_, err := io.ReadFull(c.conn, header[:])
	require.NoError(t, err)
	n, err := DecodeLength(header)
	require.NoError(t, err)
	payload := make([]byte, n)
	_, err = io.ReadFull(c.conn, payload)
	require.NoError(t, err)
	return c.cipher.Decrypt(payload)
}

func TestSessionDispatchesDecryptedPackets(t *testing.T) {
	sess, client := dialTestSession(t, testOptions())

	reg := packet.NewRegistry(zap.NewNop())
	got := make(chan byte, 1)
	reg.Register(packet.C_OPCODE_ALIVE, []packet.SessionState{packet.StateHandshake},
		func(s any, r *packet.Reader) {
			require.Same(t, sess, s)
			got <- r.Opcode()
		})

	go sess.Run(reg)
	client.send(t, []byte{packet.C_OPCODE_ALIVE})

	select {
	case op := <-got:
		require.Equal(t, packet.C_OPCODE_ALIVE, op)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestSessionHandlerReplyReachesClient(t *testing.T) {
	sess, client := dialTestSession(t, testOptions())

	reg := packet.NewRegistry(zap.NewNop())
	reg.Register(packet.C_OPCODE_VERSION, []packet.SessionState{packet.StateHandshake},
		func(s any, r *packet.Reader) {
			w := packet.NewWriterWithOpcode(packet.S_OPCODE_VERSION_CHECK)
			w.WriteD(42)
			s.(*Session).Send(w)
		})

	go sess.Run(reg)
	client.send(t, []byte{packet.C_OPCODE_VERSION})

	reply := client.recv(t)
	require.Equal(t, packet.S_OPCODE_VERSION_CHECK, reply[0])
	r := packet.NewReader(reply)
	require.Equal(t, int32(42), r.ReadD())
}

func TestSessionDeliverReachesClient(t *testing.T) {
	sess, client := dialTestSession(t, testOptions())

	reg := packet.NewRegistry(zap.NewNop())
	go sess.Run(reg)

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SAY)
	w.WriteC(0)
	w.WriteD(7)
	w.WriteS("hello")
	sess.Deliver(w.Bytes())

	reply := client.recv(t)
	require.Equal(t, packet.S_OPCODE_SAY, reply[0])
}

// A session whose delivery queue overflows is disconnected rather than
// blocking the broadcaster.
func TestSessionDeliverOverflowCloses(t *testing.T) {
	opts := testOptions()
	opts.OutQueueSize = 2
	sess, _ := dialTestSession(t, opts)

	// Run is intentionally not started, so nothing drains the queue.
	payload := []byte{0x0A, 0x00, 0x00, 0x00}
	for i := 0; i < 5; i++ {
		sess.Deliver(payload)
	}

	select {
	case <-sess.closeCh:
	case <-time.After(time.Second):
		t.Fatal("overflowing session was not closed")
	}
}

func TestSessionInvalidFrameLengthCloses(t *testing.T) {
	sess, client := dialTestSession(t, testOptions())
	go sess.Run(packet.NewRegistry(zap.NewNop()))

	// Total length 2 means an empty payload, which is out of bounds.
	_, err := client.conn.Write([]byte{0x02, 0x00})
	require.NoError(t, err)

	select {
	case <-sess.closeCh:
	case <-time.After(2 * time.Second):
		t.Fatal("session survived a malformed frame")
	}
}

func TestSessionRateLimitDisconnects(t *testing.T) {
	opts := testOptions()
	opts.PacketsPerSecond = 3
	sess, client := dialTestSession(t, opts)
	go sess.Run(packet.NewRegistry(zap.NewNop()))

	// Once the limiter trips the server closes the pipe, so later writes
	// may fail; only the disconnect matters here.
	for i := 0; i < 10; i++ {
		buf := []byte{packet.C_OPCODE_ALIVE, 0, 0, 0}
		client.cipher.Encrypt(buf)
		if _, err := client.conn.Write(EncodeFrame(buf)); err != nil {
			break
		}
	}

	select {
	case <-sess.closeCh:
	case <-time.After(2 * time.Second):
		t.Fatal("flooding session was not closed")
	}
}

func TestSessionStateTransitions(t *testing.T) {
	sess, _ := dialTestSession(t, testOptions())
	require.Equal(t, packet.StateHandshake, sess.State())
	sess.SetState(packet.StateVersionOK)
	require.Equal(t, packet.StateVersionOK, sess.State())
	sess.SetState(packet.StateInWorld)
	require.Equal(t, packet.StateInWorld, sess.State())
}

package net

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCipherRoundTripSequential(t *testing.T) {
	// Both key states start from the same seed, so one cipher object can
	// decrypt its own output as long as packet order is preserved.
	c := NewCipher(0x1A2B3C4D)

	packets := [][]byte{
		{0x0E, 0x01, 0x02, 0x03},
		{0x77, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC, 0xDD},
		bytes.Repeat([]byte{0x5A}, 64),
	}
	for i, original := range packets {
		plain := make([]byte, len(original))
		copy(plain, original)

		enc := make([]byte, len(original))
		copy(enc, original)
		c.Encrypt(enc)
		require.NotEqual(t, plain, enc, "packet %d must actually change", i)

		c.Decrypt(enc)
		require.Equal(t, plain, enc, "packet %d round trip", i)
	}
}

func TestCipherPeerCompatibility(t *testing.T) {
	// Server and client seed identical ciphers from the handshake; the
	// client's decoder must track the server's encoder across packets.
	const seed = int32(0x00C0FFEE)
	server := NewCipher(seed)
	client := NewCipher(seed)

	for i := 0; i < 10; i++ {
		plain := []byte{byte(i), 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70}
		enc := make([]byte, len(plain))
		copy(enc, plain)
		server.Encrypt(enc)
		client.Decrypt(enc)
		require.Equal(t, plain, enc, "packet %d", i)
	}
}

func TestCipherShortDataPassthrough(t *testing.T) {
	c := NewCipher(12345)
	tiny := []byte{0x01, 0x02, 0x03}
	out := c.Encrypt(append([]byte(nil), tiny...))
	require.Equal(t, tiny, out)
	out = c.Decrypt(out)
	require.Equal(t, tiny, out)
}

func TestCipherDifferentSeedsDiverge(t *testing.T) {
	a := NewCipher(1)
	b := NewCipher(2)
	plain := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	ea := a.Encrypt(append([]byte(nil), plain...))
	eb := b.Encrypt(append([]byte(nil), plain...))
	require.NotEqual(t, ea, eb)
}

func TestDecodeLengthBounds(t *testing.T) {
	tests := []struct {
		name    string
		total   uint16
		want    int
		wantErr bool
	}{
		{"minimum", 3, 1, false},
		{"typical", 20, 18, false},
		{"maximum", 65535, 65533, false},
		{"zero", 0, 0, true},
		{"header only", 2, 0, true},
		{"one", 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header [2]byte
			header[0] = byte(tt.total)
			header[1] = byte(tt.total >> 8)
			n, err := DecodeLength(header)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, n)
		})
	}
}

func TestEncodeFrameHeader(t *testing.T) {
	payload := []byte{0x8B, 0x01, 0x02, 0x03}
	frame := EncodeFrame(payload)
	require.Len(t, frame, 6)

	var header [2]byte
	copy(header[:], frame[:2])
	n, err := DecodeLength(header)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, frame[2:])
}

package net

import (
	"encoding/binary"
	"fmt"
)

// Codec is the wire capability surface a session depends on: payload
// ciphering plus frame encoding and length decoding. The production
// implementation is the rolling XOR Cipher; any reversible scheme can be
// swapped in without touching session or dispatch logic.
type Codec interface {
	Encrypt(data []byte) []byte
	Decrypt(data []byte) []byte
	EncodeFrame(payload []byte) []byte
	DecodeLength(header [2]byte) (int, error)
}

// Wire format: [2 bytes LE: total length including header][payload].

// DecodeLength extracts the payload length from a frame header. Payloads
// must be 1..65533 bytes; anything else is a protocol violation and the
// connection is torn down by the caller.
func DecodeLength(header [2]byte) (int, error) {
	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 || payloadLen > 65533 {
		return 0, fmt.Errorf("invalid frame length: %d", totalLen)
	}
	return payloadLen, nil
}

// EncodeFrame prepends the 2-byte length header to payload.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, len(payload)+2)
	binary.LittleEndian.PutUint16(frame[:2], uint16(len(payload)+2))
	copy(frame[2:], payload)
	return frame
}

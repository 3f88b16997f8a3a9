package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame type bytes, matching spec.md §6.
const (
	TypePutRequest  = 1
	TypePutResponse = 2
	TypeGetRequest  = 3
	TypeGetResponse = 4
)

// MaxPayloadLen bounds the length field of an incoming frame so a
// corrupt or hostile peer cannot force an unbounded allocation.
const MaxPayloadLen = 16 << 20 // 16 MiB

// ErrPayloadTooLarge is returned by ReadFrame when a frame's declared
// length exceeds MaxPayloadLen.
var ErrPayloadTooLarge = errors.New("wire: frame payload exceeds maximum length")

// Frame is one decoded request/response envelope: a type byte and its
// raw (still protobuf-encoded) payload.
type Frame struct {
	Type    byte
	Payload []byte
}

// ReadFrame reads one frame from r: a 1-byte type, a 4-byte
// little-endian length, then that many payload bytes. A clean
// half-close at the header boundary returns io.EOF unchanged so
// callers can distinguish "no more requests" from a framing error.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:1]); err != nil {
		return Frame{}, err // io.EOF propagates verbatim at a header boundary
	}
	if _, err := io.ReadFull(r, header[1:5]); err != nil {
		return Frame{}, fmt.Errorf("wire: read frame length: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[1:5])
	if length > MaxPayloadLen {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return Frame{Type: header[0], Payload: payload}, nil
}

// WriteFrame writes typ and payload as a single frame to w.
func WriteFrame(w io.Writer, typ byte, payload []byte) error {
	var header [5]byte
	header[0] = typ
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

package store

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// hash64 computes a stable 64-bit hash of a padded key. The same
// function is used by Get and Set so that routing and probing agree
// across process restarts for a given binary, per the store's
// durability contract.
func hash64(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// padKey converts a caller-supplied logical key into its fixed
// KeyLen-byte slot form: UTF-8 bytes truncated to KeyLen, or
// right-padded with zero bytes if shorter. The padding is part of the
// key's identity, so two logical keys that agree after truncation
// collide into the same slot key.
func padKey(key []byte) [KeyLen]byte {
	var out [KeyLen]byte
	n := copy(out[:], key)
	_ = n // remaining bytes are already zero
	return out
}

// isZero reports whether every byte of buf is zero.
func isZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// slotState classifies a 136-byte slot once its key field has been
// compared against the key being looked up.
type slotState int

const (
	slotFree slotState = iota
	slotMatch
	slotCollision
)

// classifySlot inspects a raw SlotLen-byte record against the target
// key and returns its logical state. For slotMatch, value holds the
// decoded 8-byte native-order value.
func classifySlot(slot []byte, key [KeyLen]byte) (state slotState, value uint64) {
	if isZero(slot) {
		return slotFree, 0
	}
	if [KeyLen]byte(slot[:KeyLen]) == key {
		return slotMatch, decodeValue(slot[KeyLen:SlotLen])
	}
	return slotCollision, 0
}

// encodeSlot lays out a key and value into a fresh SlotLen-byte record.
func encodeSlot(key [KeyLen]byte, value uint64) [SlotLen]byte {
	var out [SlotLen]byte
	copy(out[:KeyLen], key[:])
	encodeValueInto(out[KeyLen:SlotLen], value)
	return out
}

// encodeValueInto writes value into dst (len(dst) must be ValueLen) in
// host-native byte order, matching the original implementation's
// to_ne_bytes/from_ne_bytes choice (see DESIGN.md Open Question 1).
func encodeValueInto(dst []byte, value uint64) {
	nativeEndian.PutUint64(dst, value)
}

func decodeValue(src []byte) uint64 {
	return nativeEndian.Uint64(src)
}

// nativeEndian is resolved once at init time based on the runtime's
// actual byte order, so shard files are only portable between machines
// that share it — as documented in spec.md §9.
var nativeEndian binary.ByteOrder = detectNativeEndian()

func detectNativeEndian() binary.ByteOrder {
	var i uint16 = 1
	b := (*[2]byte)(nativeEndianPtr(&i))
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

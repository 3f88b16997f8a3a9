package store

import "errors"

const (
	// KeyLen is the fixed width, in bytes, of every slot key.
	KeyLen = 128

	// ValueLen is the fixed width, in bytes, of every slot value.
	ValueLen = 8

	// SlotLen is the size of one on-disk slot record: key followed by value.
	SlotLen = KeyLen + ValueLen

	// SlotsPerShard is the default number of slots in a shard file.
	SlotsPerShard = 15_000_000

	// ShardExponent (S) is the default log2 of the shard count.
	ShardExponent = 2

	// NumShards is the default number of shard files (2^ShardExponent).
	NumShards = 1 << ShardExponent

	// FileSize is the size, in bytes, of a shard file with SlotsPerShard slots.
	FileSize = int64(SlotLen) * SlotsPerShard

	// shardFileSuffix names every shard file "<n>.kek".
	shardFileSuffix = ".kek"

	// sectorSize is the alignment used for O_DIRECT reads/writes on platforms
	// that require it. 4096 covers every common Linux page/sector size.
	sectorSize = 4096
)

// ErrShardFull is returned when a write probes every slot in a shard
// without finding the key or a free slot. Operators must provision
// capacity above the maximum expected live key count; this error means
// that provisioning was exceeded.
var ErrShardFull = errors.New("store: shard full, probe exhausted all slots")

// ErrZeroKey is returned when a key's full KeyLen-byte padded form is
// all zero bytes, which is indistinguishable on disk from a Free slot.
var ErrZeroKey = errors.New("store: all-zero key is not representable")

// ErrBadDirectory is returned by Open when an existing, non-empty base
// directory does not contain exactly NumShards regular files named
// "0.kek".."(NumShards-1).kek".
var ErrBadDirectory = errors.New("store: base directory has wrong shard layout")

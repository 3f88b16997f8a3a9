/*
Package store implements the sharded, persistent, open-addressed hash
table that backs the key-value service: a fixed number of slot files,
accessed with positional reads and writes, each holding a linear-probed hash table of fixed-width
key/value slots.

Basic usage:

	tbl, err := store.Open("./storage")
	if err != nil {
		log.Fatal(err)
	}
	defer tbl.Close()

	if err := tbl.Set([]byte("alpha"), 42); err != nil {
		log.Fatal(err)
	}
	value, err := tbl.Get([]byte("alpha"))

Layout:

  - A table is split into N_SHARDS fixed-size files, named 0.kek through
    (N_SHARDS-1).kek, each holding SLOTS_PER_SHARD fixed 136-byte slots.
  - A slot is either Free (136 zero bytes), holds the caller's key and an
    8-byte native-order value, or holds some other key reached during
    collision resolution.
  - There is no on-disk header, no resizing, and no deletion: capacity is
    fixed at creation time and probing that exhausts a shard is a
    reported error, not silent data loss.

Concurrency: each shard has its own reader/writer lock. Multiple
concurrent reads are allowed per shard; writes are exclusive per shard.
Shards never share a lock and no operation spans two shards.
*/
package store

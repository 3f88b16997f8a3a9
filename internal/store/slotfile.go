package store

import (
	"fmt"
	"os"
)

// SlotFile is one shard: a fixed-length file of SlotLen-byte records
// addressed by open-addressed linear probing. All access is positional
// (pread/pwrite-style, via *os.File's ReadAt/WriteAt or the platform's
// O_DIRECT equivalent), so concurrent readers never race over a shared
// seek cursor — see spec.md §9 "File-descriptor aliasing".
//
// SlotFile itself performs no locking; callers (Table) hold a per-shard
// RWMutex around Read/Write.
type SlotFile struct {
	f     *os.File
	path  string
	slots uint64
}

// openSlotFile opens path as a shard file with the given slot capacity,
// creating and zero-sizing it first if it does not exist. existed
// reports whether the file was already present (and therefore was not
// freshly zeroed by this call).
func openSlotFile(path string, slots uint64) (sf *SlotFile, existed bool, err error) {
	f, existed, err := openShardFile(path, int64(slots)*SlotLen)
	if err != nil {
		return nil, false, fmt.Errorf("store: open shard file %s: %w", path, err)
	}
	return &SlotFile{f: f, path: path, slots: slots}, existed, nil
}

// Close releases the shard file's descriptor.
func (sf *SlotFile) Close() error {
	return sf.f.Close()
}

// fileExists reports whether path names an existing filesystem entry.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read probes starting at slot index (startSlot mod slots) and returns
// the value stored under key, or ok=false if the probe chain reaches a
// Free slot first. It never returns an error for an absent key; err is
// reserved for I/O failures and ErrShardFull. probeLen is the number of
// slots examined, for callers that want to record it as a metric.
func (sf *SlotFile) Read(startSlot uint64, key [KeyLen]byte) (value uint64, ok bool, probeLen int, err error) {
	start := startSlot % sf.slots
	for i := uint64(0); i < sf.slots; i++ {
		idx := (start + i) % sf.slots
		slot, err := readSlot(sf.f, int64(idx)*SlotLen)
		if err != nil {
			return 0, false, int(i) + 1, fmt.Errorf("store: read slot %d of %s: %w", idx, sf.path, err)
		}
		state, v := classifySlot(slot[:], key)
		switch state {
		case slotFree:
			return 0, false, int(i) + 1, nil
		case slotMatch:
			return v, true, int(i) + 1, nil
		case slotCollision:
			continue
		}
	}
	return 0, false, int(sf.slots), ErrShardFull
}

// Write probes starting at slot index (startSlot mod slots), inserting
// key/value into the first Free slot found or overwriting the slot that
// already holds key. Exactly one slot record is written; on the O_DIRECT
// path it goes out as part of one sector-aligned write.
func (sf *SlotFile) Write(startSlot uint64, key [KeyLen]byte, value uint64) (probeLen int, err error) {
	start := startSlot % sf.slots
	for i := uint64(0); i < sf.slots; i++ {
		idx := (start + i) % sf.slots
		offset := int64(idx) * SlotLen
		slot, err := readSlot(sf.f, offset)
		if err != nil {
			return int(i) + 1, fmt.Errorf("store: read slot %d of %s: %w", idx, sf.path, err)
		}
		state, _ := classifySlot(slot[:], key)
		switch state {
		case slotFree, slotMatch:
			rec := encodeSlot(key, value)
			if err := writeSlot(sf.f, offset, rec, int64(sf.slots)*SlotLen); err != nil {
				return int(i) + 1, fmt.Errorf("store: write slot %d of %s: %w", idx, sf.path, err)
			}
			return int(i) + 1, nil
		case slotCollision:
			continue
		}
	}
	return int(sf.slots), ErrShardFull
}

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Table owns N shard files and routes keys to them by hash, exposing
// Get/Set with per-shard reader/writer locking. Construction validates
// or creates the on-disk layout described in spec.md §3/§4.3.
type Table struct {
	shards   []*SlotFile
	locks    []sync.RWMutex
	nShards  uint64
	shardMsk uint64
	log      *zap.Logger
	metrics  metricsSink
}

// Option configures Table construction.
type Option func(*tableConfig)

type tableConfig struct {
	slotsPerShard uint64
	nShards       uint64
	logger        *zap.Logger
	registry      prometheus.Registerer
}

// WithLogger attaches a zap.Logger for shard lifecycle and
// request-fatal error events. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *tableConfig) { c.logger = l }
}

// WithMetrics enables Prometheus metrics collection, registering the
// table's counters/histograms against reg. Defaults to a no-op sink.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *tableConfig) { c.registry = reg }
}

// withSlotsPerShard overrides the default SlotsPerShard constant; it is
// unexported because production callers must always use the spec's
// fixed capacity. Tests use it to keep shard files small.
func withSlotsPerShard(n uint64) Option {
	return func(c *tableConfig) { c.slotsPerShard = n }
}

// withShardCount overrides the default NumShards; unexported for the
// same reason as withSlotsPerShard.
func withShardCount(n uint64) Option {
	return func(c *tableConfig) { c.nShards = n }
}

// Open constructs a Table rooted at dir, per spec.md §4.3:
//  1. If dir does not exist, it is created, along with NumShards fresh
//     zero-filled shard files.
//  2. If dir exists and is empty, the same shard files are created.
//  3. If dir exists and is non-empty, it must contain exactly NumShards
//     regular files named "0.kek".."(NumShards-1).kek"; any mismatch is
//     ErrBadDirectory.
func Open(dir string, opts ...Option) (*Table, error) {
	cfg := tableConfig{
		slotsPerShard: SlotsPerShard,
		nShards:       NumShards,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	log := cfg.logger
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create base directory %s: %w", dir, err)
	}

	if err := validateDirectory(dir, cfg.nShards); err != nil {
		return nil, err
	}

	shards := make([]*SlotFile, cfg.nShards)
	for i := range shards {
		path := filepath.Join(dir, shardFileName(i))
		sf, existed, err := openSlotFile(path, cfg.slotsPerShard)
		if err != nil {
			for _, opened := range shards[:i] {
				if opened != nil {
					opened.Close()
				}
			}
			return nil, err
		}
		log.Debug("opened shard", zap.Int("shard", i), zap.String("path", path), zap.Bool("existed", existed))
		shards[i] = sf
	}

	var metrics metricsSink = noopMetrics{}
	if cfg.registry != nil {
		metrics = newPromMetrics(cfg.registry)
	}

	return &Table{
		shards:   shards,
		locks:    make([]sync.RWMutex, cfg.nShards),
		nShards:  cfg.nShards,
		shardMsk: cfg.nShards - 1,
		log:      log,
		metrics:  metrics,
	}, nil
}

// shardFileName returns the "<n>.kek" file name for shard i.
func shardFileName(i int) string {
	return strconv.Itoa(i) + shardFileSuffix
}

// validateDirectory enforces spec.md §4.3 construction rule 3: a
// non-empty base directory must contain exactly nShards regular files
// whose "N.kek" names are a permutation of 0..nShards-1.
func validateDirectory(dir string, nShards uint64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("store: read base directory %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil
	}
	if uint64(len(entries)) != nShards {
		return fmt.Errorf("%w: expected %d entries, found %d", ErrBadDirectory, nShards, len(entries))
	}

	seen := make([]bool, nShards)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrBadDirectory, e.Name())
		}
		n, ok := parseShardNum(e.Name())
		if !ok || uint64(n) >= nShards || e.Name() != shardFileName(n) {
			return fmt.Errorf("%w: unexpected file %s", ErrBadDirectory, e.Name())
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate shard number %d", ErrBadDirectory, n)
		}
		seen[n] = true
	}
	return nil
}

// parseShardNum extracts N from a "N.kek" (or "N.<anything>") file name.
func parseShardNum(name string) (int, bool) {
	prefix, _, found := strings.Cut(name, ".")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// route computes the shard index and initial probe slot for key.
func (t *Table) route(key [KeyLen]byte) (shard int, startSlot uint64) {
	h := hash64(key[:])
	shard = int(h & t.shardMsk)
	startSlot = h >> ShardExponent
	return shard, startSlot
}

// Get returns the value stored under key, or 0 if key is absent.
func (t *Table) Get(key []byte) (uint64, error) {
	padded := padKey(key)
	if isZero(padded[:]) {
		return 0, ErrZeroKey
	}
	shard, start := t.route(padded)

	t.locks[shard].RLock()
	defer t.locks[shard].RUnlock()

	value, ok, probeLen, err := t.shards[shard].Read(start, padded)
	t.metrics.observeProbeLen(shard, probeLen)
	if err != nil {
		t.metrics.incError(shard, "get")
		t.log.Error("get failed", zap.Int("shard", shard), zap.Error(err))
		return 0, err
	}
	t.metrics.incGet(shard, ok)
	if !ok {
		return 0, nil
	}
	return value, nil
}

// Set stores value under key, overwriting any existing value.
func (t *Table) Set(key []byte, value uint64) error {
	padded := padKey(key)
	if isZero(padded[:]) {
		return ErrZeroKey
	}
	shard, start := t.route(padded)

	t.locks[shard].Lock()
	defer t.locks[shard].Unlock()

	probeLen, err := t.shards[shard].Write(start, padded, value)
	t.metrics.observeProbeLen(shard, probeLen)
	if err != nil {
		t.metrics.incError(shard, "set")
		t.log.Error("set failed", zap.Int("shard", shard), zap.Error(err))
		return err
	}
	t.metrics.incSet(shard)
	return nil
}

// Close closes every shard file, returning the aggregate of any errors
// encountered (go.uber.org/multierr, rather than reporting only the
// first shard's failure).
func (t *Table) Close() error {
	var errs error
	for i, sf := range t.shards {
		if err := sf.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shard %d: %w", i, err))
		}
	}
	return errs
}

// shardCount reports the number of shards in the table. It is
// unexported and only reachable from inside this package.
func (t *Table) shardCount() int { return int(t.nShards) }

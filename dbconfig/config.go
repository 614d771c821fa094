// Package dbconfig holds the kernel's process-wide configuration: block
// size, buffer pool capacity, eviction policy, log file name, and max lock
// wait. It loads from an INI file the way
// zhukovaskychina-xmysql-server/server/conf loads MySQL-style config, and
// falls back to documented defaults when no file is given.
package dbconfig

import (
	"time"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// EvictionPolicy selects the buffer pool's replacement strategy.
type EvictionPolicy string

const (
	EvictionFIFO EvictionPolicy = "fifo"
	EvictionLRUK EvictionPolicy = "lruk"
)

// Defaults match the values a from-scratch embedder gets with no config
// file: a modest block size, a small pool, LRU-K eviction, and the spec's
// 10 second lock wait.
const (
	DefaultBlockSize      = 4096
	DefaultPoolCapacity   = 100
	DefaultLogFile        = "kerndb.log"
	DefaultEvictionPolicy = EvictionLRUK
	DefaultMaxLockWait    = 10 * time.Second
)

// Config is the process-wide configuration consumed by FileManager,
// BufferManager, and LockTable at construction time.
type Config struct {
	BlockSize      int
	PoolCapacity   int
	LogFile        string
	EvictionPolicy EvictionPolicy
	MaxLockWait    time.Duration
}

// Default returns the configuration used when no INI file is supplied.
func Default() Config {
	return Config{
		BlockSize:      DefaultBlockSize,
		PoolCapacity:   DefaultPoolCapacity,
		LogFile:        DefaultLogFile,
		EvictionPolicy: DefaultEvictionPolicy,
		MaxLockWait:    DefaultMaxLockWait,
	}
}

// Load reads configuration from an INI file shaped like:
//
//	[storage]
//	block_size = 4096
//	log_file   = kerndb.log
//
//	[buffer]
//	pool_capacity   = 100
//	eviction_policy = lruk
//
//	[locking]
//	max_wait_seconds = 10
//
// An empty path returns Default(). Missing keys fall back to their default
// value individually.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "dbconfig: loading %s", path)
	}

	storage := f.Section("storage")
	cfg.BlockSize = storage.Key("block_size").MustInt(cfg.BlockSize)
	cfg.LogFile = storage.Key("log_file").MustString(cfg.LogFile)

	buf := f.Section("buffer")
	cfg.PoolCapacity = buf.Key("pool_capacity").MustInt(cfg.PoolCapacity)
	switch EvictionPolicy(buf.Key("eviction_policy").MustString(string(cfg.EvictionPolicy))) {
	case EvictionFIFO:
		cfg.EvictionPolicy = EvictionFIFO
	case EvictionLRUK:
		cfg.EvictionPolicy = EvictionLRUK
	default:
		return Config{}, errors.Errorf("dbconfig: unknown eviction_policy %q", buf.Key("eviction_policy").String())
	}

	locking := f.Section("locking")
	cfg.MaxLockWait = time.Duration(locking.Key("max_wait_seconds").MustInt(int(cfg.MaxLockWait/time.Second))) * time.Second

	return cfg, nil
}

// Package outbox is a durable queue of sync operations that could not reach
// remote persistence. It is backed by an embedded BadgerDB; entries are
// returned in key order, so time-ordered ids replay oldest first.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var keyPrefix = []byte("outbox/")

// Config holds configuration for the outbox database.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is
	// true.
	Path string

	// InMemory keeps the outbox in RAM only. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *slog.Logger

	// GCInterval is how often value log garbage collection runs. Zero
	// disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum discardable fraction before GC
	// rewrites a value log file.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for a persistent outbox at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Entry is one deferred operation.
type Entry struct {
	ID      string
	Payload []byte
}

// Outbox is safe for concurrent use.
type Outbox struct {
	db  *badger.DB
	cfg Config
}

// Open creates or reopens an outbox.
func Open(cfg Config) (*Outbox, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("outbox path is required unless in memory")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create outbox directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	return &Outbox{db: db, cfg: cfg}, nil
}

func entryKey(id string) []byte {
	return append(append([]byte{}, keyPrefix...), id...)
}

// Put stores payload under id, replacing any previous entry.
func (o *Outbox) Put(id string, payload []byte) error {
	err := o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(id), payload)
	})
	if err != nil {
		return fmt.Errorf("outbox put %s: %w", id, err)
	}
	return nil
}

// Delete removes an entry. Missing entries are ignored.
func (o *Outbox) Delete(id string) error {
	err := o.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(id))
	})
	if err != nil {
		return fmt.Errorf("outbox delete %s: %w", id, err)
	}
	return nil
}

// Entries returns up to limit entries in id order. limit <= 0 returns all.
func (o *Outbox) Entries(limit int) ([]Entry, error) {
	var out []Entry
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, Entry{
				ID:      string(item.Key()[len(keyPrefix):]),
				Payload: payload,
			})
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("outbox scan: %w", err)
	}
	return out, nil
}

// Len counts pending entries.
func (o *Outbox) Len() (int, error) {
	n := 0
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC collects the value log every GCInterval until ctx is done. It
// returns immediately when GC is disabled.
func (o *Outbox) RunGC(ctx context.Context) {
	if o.cfg.InMemory || o.cfg.GCInterval <= 0 {
		return
	}
	ticker := time.NewTicker(o.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for o.db.RunValueLogGC(o.cfg.GCDiscardRatio) == nil {
			}
		}
	}
}

// Close flushes and closes the database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

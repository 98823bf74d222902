// Package tscache implements the per-user authentication timestamp cache.
//
// Each user has a lock file dir/<user>.lock and a badger database
// dir/<user>.db. The lock file carries an exclusive flock while the
// database is open, so concurrent invocations for the same user serialize
// on it and badger's own directory lock is never contended.
package tscache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/metrics"
)

const (
	// DirPermissions is the mode used when creating the cache directory.
	DirPermissions = 0o700

	// DefaultLockTimeout bounds how long Lock waits for another holder.
	DefaultLockTimeout = 10 * time.Second

	lockPollInterval = 50 * time.Millisecond
	keyPrefix        = "ts:"
)

var (
	// ErrNotLocked is returned by record operations called without the lock.
	ErrNotLocked = errors.New("timestamp lock not held")

	// ErrInvalidUser is returned by Open for names that are not safe as file names.
	ErrInvalidUser = errors.New("invalid user name")

	// ErrClosed is returned when a closed handle is used.
	ErrClosed = errors.New("timestamp handle closed")
)

var _ auth.Locker = (*Handle)(nil)

// Handle is one user's view of the cache.
type Handle struct {
	mu     sync.Mutex
	dir    string
	user   string
	file   *os.File
	db     *badger.DB
	closed bool

	lockTimeout time.Duration
	metrics     metrics.TimestampMetrics
	now         func() time.Time
}

// Option configures a Handle.
type Option func(*Handle)

// WithLockTimeout overrides DefaultLockTimeout. Zero makes Lock a single
// non-blocking attempt.
func WithLockTimeout(d time.Duration) Option {
	return func(h *Handle) { h.lockTimeout = d }
}

// WithMetrics records lookups and lock waits on m.
func WithMetrics(m metrics.TimestampMetrics) Option {
	return func(h *Handle) { h.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handle) { h.now = now }
}

// Open creates dir if needed and opens the user's lock file. The lock is
// not taken.
func Open(dir, user string, opts ...Option) (*Handle, error) {
	if !validUser(user) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("create timestamp dir: %w", err)
	}

	lockPath := filepath.Join(dir, user+".lock")
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open timestamp lock: %w", err)
	}

	h := &Handle{
		dir:         dir,
		user:        user,
		file:        f,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func validUser(user string) bool {
	if user == "" || strings.HasPrefix(user, ".") {
		return false
	}
	return !strings.ContainsAny(user, "/\\\x00")
}

// User returns the user the handle was opened for.
func (h *Handle) User() string {
	return h.user
}

// Lock takes the exclusive lock and opens the database, waiting up to the
// lock timeout for a concurrent holder. It reports false on timeout or on
// any error, which is logged.
func (h *Handle) Lock() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.db != nil {
		return true
	}

	start := time.Now()
	deadline := start.Add(h.lockTimeout)
	for {
		ok, err := tryLock(h.file)
		if err != nil {
			logger.Warn("timestamp lock failed", logger.Path(h.file.Name()), logger.Err(err))
			return false
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			logger.Warn("timestamp lock busy", logger.Path(h.file.Name()), logger.KeyUser, h.user)
			metrics.RecordLockWait(h.metrics, time.Since(start))
			return false
		}
		time.Sleep(lockPollInterval)
	}
	metrics.RecordLockWait(h.metrics, time.Since(start))

	db, err := openDB(filepath.Join(h.dir, h.user+".db"))
	if err != nil {
		logger.Warn("timestamp database open failed", logger.KeyUser, h.user, logger.Err(err))
		_ = unlock(h.file)
		return false
	}
	h.db = db
	return true
}

// Unlock closes the database and releases the lock.
func (h *Handle) Unlock() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unlockLocked()
}

func (h *Handle) unlockLocked() {
	if h.db == nil {
		return
	}
	if err := h.db.Close(); err != nil {
		logger.Warn("timestamp database close failed", logger.KeyUser, h.user, logger.Err(err))
	}
	h.db = nil
	if err := unlock(h.file); err != nil {
		logger.Warn("timestamp unlock failed", logger.Path(h.file.Name()), logger.Err(err))
	}
}

// Valid reports whether the user authenticated within timeout. A record
// from the future (clock stepped back) is not valid. A non-positive timeout
// disables the cache.
func (h *Handle) Valid(timeout time.Duration) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkLocked(); err != nil {
		return false, err
	}
	if timeout <= 0 {
		return false, nil
	}

	var stamp time.Time
	found := false
	err := h.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(h.key())
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt timestamp record (%d bytes)", len(val))
			}
			stamp = time.Unix(0, int64(binary.BigEndian.Uint64(val)))
			found = true
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("read timestamp: %w", err)
	}

	now := h.now()
	valid := found && !stamp.After(now) && now.Sub(stamp) < timeout
	metrics.RecordLookup(h.metrics, valid)
	return valid, nil
}

// Update records a successful authentication now. The record expires
// after timeout.
func (h *Handle) Update(timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkLocked(); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}

	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(h.now().UnixNano()))
	err := h.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(h.key(), val).WithTTL(timeout))
	})
	if err != nil {
		return fmt.Errorf("write timestamp: %w", err)
	}
	return nil
}

// Remove deletes the user's record. Removing a missing record is not an
// error.
func (h *Handle) Remove() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkLocked(); err != nil {
		return err
	}
	err := h.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(h.key())
	})
	if err != nil {
		return fmt.Errorf("remove timestamp: %w", err)
	}
	return nil
}

// Close unlocks and closes the lock file. Safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.unlockLocked()
	return h.file.Close()
}

func (h *Handle) checkLocked() error {
	if h.closed {
		return ErrClosed
	}
	if h.db == nil {
		return ErrNotLocked
	}
	return nil
}

func (h *Handle) key() []byte {
	return []byte(keyPrefix + h.user)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{}).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(1 << 20).
		WithMemTableSize(4 << 20).
		WithValueThreshold(1 << 10).
		WithBlockCacheSize(1 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, DirPermissions); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// badgerLogger forwards badger's internal logging at debug level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(string, ...any) {}

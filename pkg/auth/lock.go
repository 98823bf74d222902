package auth

import (
	"sync"

	"github.com/marmos91/dittoauth/internal/logger"
)

// Locker is an advisory lock owned outside this package, typically the
// timestamp cache handle.
type Locker interface {
	// Lock blocks until the lock is taken. It returns false when the lock
	// cannot be obtained.
	Lock() bool
	Unlock()
}

// SuspendableLock guards a Locker that must not be held while the process
// is stopped.
//
// Release is called before a job-control stop and Reacquire after the
// process continues. Reacquire only relocks what Release released, so a
// lock that was never taken stays untaken. A nil Locker yields a lock whose
// operations are all no-ops.
//
// Release and Reacquire may be called from a signal-handling goroutine, so
// the state is mutex protected.
type SuspendableLock struct {
	mu        sync.Mutex
	locker    Locker
	held      bool
	suspended bool
}

// NewSuspendableLock wraps l. The lock starts released; call Acquire.
func NewSuspendableLock(l Locker) *SuspendableLock {
	return &SuspendableLock{locker: l}
}

// Acquire takes the lock. Calling it while held is a no-op.
func (s *SuspendableLock) Acquire() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker == nil || s.held {
		return nil
	}
	if !s.locker.Lock() {
		return ErrLockBusy
	}
	s.held = true
	s.suspended = false
	return nil
}

// Release drops the lock ahead of a suspension.
func (s *SuspendableLock) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker == nil || !s.held {
		return
	}
	s.locker.Unlock()
	s.held = false
	s.suspended = true
	logger.Debug("timestamp lock released for suspend")
}

// Reacquire retakes a lock dropped by Release. It returns ErrLockLost when
// the lock cannot be obtained again.
func (s *SuspendableLock) Reacquire() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker == nil || !s.suspended {
		return nil
	}
	if !s.locker.Lock() {
		logger.Warn("timestamp lock could not be reacquired after resume")
		return ErrLockLost
	}
	s.held = true
	s.suspended = false
	logger.Debug("timestamp lock reacquired after resume")
	return nil
}

// Close releases the lock for good.
func (s *SuspendableLock) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil && s.held {
		s.locker.Unlock()
	}
	s.held = false
	s.suspended = false
}

// Held reports whether the lock is currently taken.
func (s *SuspendableLock) Held() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// Hooks returns suspend hooks that release and reacquire this lock.
func (s *SuspendableLock) Hooks() SuspendHooks {
	return SuspendHooks{
		OnSuspend: s.Release,
		OnResume:  s.Reacquire,
	}
}

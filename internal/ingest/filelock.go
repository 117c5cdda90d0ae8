package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrLockTimeout indicates the ingest lock could not be acquired in time
var ErrLockTimeout = errors.New("lock acquisition timed out")

const (
	lockPollMin = 10 * time.Millisecond
	lockPollMax = 250 * time.Millisecond
)

// FileLock is an exclusive flock(2) lock on a file. The kernel releases it
// when the holding process exits.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock on path. Nothing is opened until it is acquired.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Held reports whether this instance holds the lock.
func (l *FileLock) Held() bool {
	return l.file != nil
}

// TryLock acquires the lock without waiting. It returns false when another
// holder has it.
func (l *FileLock) TryLock() (bool, error) {
	if l.file != nil {
		return true, nil
	}
	f, err := l.open()
	if err != nil {
		return false, err
	}

	ok, err := tryFlock(f)
	if err != nil || !ok {
		_ = f.Close()
		return false, err
	}
	l.file = f
	return true, nil
}

// Lock waits up to timeout for the lock, backing off between attempts.
// It returns ErrLockTimeout when the wait expires and ctx.Err() when ctx
// ends first.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if l.file != nil {
		return nil
	}
	f, err := l.open()
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	wait := lockPollMin
	for {
		ok, err := tryFlock(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		if ok {
			l.file = f
			return nil
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return ctx.Err()
		case <-timer.C:
			_ = f.Close()
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
		case <-time.After(wait):
			wait = min(wait*2, lockPollMax)
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("flock unlock failed: %w", unlockErr)
	}
	return closeErr
}

func (l *FileLock) open() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, nil
}

func tryFlock(f *os.File) (bool, error) {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock failed: %w", err)
}

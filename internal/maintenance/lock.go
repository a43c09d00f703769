package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"moodreel/internal/services"
)

// Mode selects shared or exclusive locking.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

const retryDelay = 100 * time.Millisecond

// ErrBusy reports that another process holds a conflicting lock.
var ErrBusy = errors.New("maintenance lock busy")

// Lock is a held maintenance lock.
type Lock struct {
	path string
	mode Mode
	fl   *flock.Flock
}

// Acquire takes the lock at path in mode. With wait <= 0 it fails
// immediately with ErrBusy when the lock is held; otherwise it retries until
// wait elapses or ctx is cancelled.
func Acquire(ctx context.Context, path string, mode Mode, wait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)

	var (
		ok  bool
		err error
	)
	if wait <= 0 {
		ok, err = tryOnce(fl, mode)
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if mode == Exclusive {
			ok, err = fl.TryLockContext(waitCtx, retryDelay)
		} else {
			ok, err = fl.TryRLockContext(waitCtx, retryDelay)
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			ok, err = false, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", mode, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "maintenance", "lock",
			fmt.Sprintf("%s lock on %s held by another process", mode, path), ErrBusy)
	}
	return &Lock{path: path, mode: mode, fl: fl}, nil
}

func tryOnce(fl *flock.Flock, mode Mode) (bool, error) {
	if mode == Exclusive {
		return fl.TryLock()
	}
	return fl.TryRLock()
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Mode returns the held mode.
func (l *Lock) Mode() Mode { return l.mode }

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release %s lock: %w", l.mode, err)
	}
	return nil
}

package economy

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound covers a missing card, a card owned by someone else and an
	// already sold card.
	ErrNotFound = errors.New("card not found or already sold")

	ErrUserNotFound     = errors.New("user not found")
	ErrAccessDenied     = errors.New("channel subscription required")
	ErrAssetUnavailable = errors.New("card asset unavailable")
	ErrCooldownActive   = errors.New("draw cooldown active")

	// ErrOrphanCard signals a card insert for a user row that does not exist.
	// The engine always upserts first, so this is a programming error.
	ErrOrphanCard = errors.New("card insert violates user foreign key")
)

// CooldownError reports how long the user still has to wait.
type CooldownError struct {
	Remaining time.Duration
	NextAt    time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("draw cooldown active, %s remaining", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// StorageError wraps a failed persistence operation. The operation was rolled
// back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Kind classifies an engine error for presentation.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindCooldown
	KindAssetUnavailable
	KindAccessDenied
	KindStorage
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindCooldown:
		return "cooldown"
	case KindAssetUnavailable:
		return "asset_unavailable"
	case KindAccessDenied:
		return "access_denied"
	case KindStorage:
		return "storage"
	default:
		return "unexpected"
	}
}

func KindOf(err error) Kind {
	var storageErr *StorageError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrOrphanCard):
		return KindUnexpected
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCooldownActive):
		return KindCooldown
	case errors.Is(err, ErrAssetUnavailable):
		return KindAssetUnavailable
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.As(err, &storageErr):
		return KindStorage
	default:
		return KindUnexpected
	}
}

// RemainingCooldown extracts the wait from a cooldown error.
func RemainingCooldown(err error) (time.Duration, bool) {
	var cdErr *CooldownError
	if errors.As(err, &cdErr) {
		return cdErr.Remaining, true
	}
	return 0, false
}

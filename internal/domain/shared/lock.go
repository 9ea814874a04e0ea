package shared

import (
	"context"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a lock could not be acquired in time
var ErrLockTimeout = NewDomainError("LOCK_TIMEOUT", "Timed out waiting for another change to the same resource")

// Unlock releases a lock obtained from a Locker
type Unlock func()

// Locker grants exclusive access to one aggregate at a time. Two holders of
// the same (orgID, id) pair never overlap; different ids never block each other.
type Locker interface {
	Lock(ctx context.Context, orgID, id uuid.UUID) (Unlock, error)
}

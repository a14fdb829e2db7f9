package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSignature covers both unrecoverable signatures and
	// recovered signers outside the validator set. Security-relevant,
	// never retried.
	ErrInvalidSignature = errors.New("ledger: invalid signature")

	// ErrEmptyIdentifier rejects commitments without a content identifier.
	ErrEmptyIdentifier = errors.New("ledger: empty content identifier")

	// ErrSignatureAlreadyUsed rejects replays of previously consumed
	// signature bytes. The caller must produce a fresh signature.
	ErrSignatureAlreadyUsed = errors.New("ledger: signature already used")

	// ErrSnapshotExists rejects a commitment whose id is already in the
	// append-only sequence.
	ErrSnapshotExists = errors.New("ledger: snapshot id already committed")

	// ErrNonMonotonicID is returned only when strict id monotonicity is
	// enabled and a commitment does not advance the latest id.
	ErrNonMonotonicID = errors.New("ledger: snapshot id not monotonic")

	// ErrNoSnapshot means no commitment has been accepted yet.
	ErrNoSnapshot = errors.New("ledger: no snapshot committed")

	// ErrNotFound means the queried snapshot id does not exist.
	ErrNotFound = errors.New("ledger: snapshot not found")

	// ErrUnauthorized rejects owner-only transitions from non-owners.
	ErrUnauthorized = errors.New("ledger: caller is not the owner")
)

// CooldownError is returned while the acceptance cooldown is active. It
// carries the remaining wait so the caller can retry after the window.
type CooldownError struct {
	RemainingSeconds uint64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("ledger: cooldown active, %ds remaining", e.RemainingSeconds)
}

// AsCooldown unwraps err into a CooldownError if it is one.
func AsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

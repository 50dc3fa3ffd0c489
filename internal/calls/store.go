package calls

import (
	"context"
	"time"
)

// Store is the ephemeral call store: call records plus the per-user
// active-call pointers that make "is this user busy" an O(1) lookup
// instead of a key scan.
//
// Implementations must keep a record and its two pointers consistent:
// Create and Delete touch all three keys atomically so there is never a
// window where a pointer exists without its record's sibling pointer.
// TTL is the only cleanup mechanism; no implementation runs timers.
type Store interface {
	// Create writes the record and one active-call pointer per party,
	// all with the given TTL, atomically.
	Create(ctx context.Context, rec CallRecord, ttl time.Duration) error

	// Get loads a record. ok is false if the record does not exist
	// (ended or expired).
	Get(ctx context.Context, callID string) (rec CallRecord, ok bool, err error)

	// UpdateIfStatus rewrites the record and refreshes both parties'
	// pointers to the given TTL, but only while the stored record's
	// status still equals expect. The check and write are one atomic
	// step, so two racing status transitions resolve to one winner.
	// ok is false when the record is gone or the status moved on.
	UpdateIfStatus(ctx context.Context, rec CallRecord, ttl time.Duration, expect Status) (ok bool, err error)

	// Delete removes the record and the given users' pointers atomically.
	// Deleting an absent record is not an error.
	Delete(ctx context.Context, callID string, userIDs ...string) error

	// ActiveCallID resolves a user's active-call pointer.
	ActiveCallID(ctx context.Context, userID string) (callID string, ok bool, err error)

	// DeletePointer drops a single user's pointer. Used to self-heal a
	// pointer that outlived (or no longer matches) its record.
	DeletePointer(ctx context.Context, userID string) error
}

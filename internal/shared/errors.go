package shared

import "errors"

var (
	// ErrForbidden indicates the actor is not allowed to perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateRequest indicates a pending promotion request already exists.
	ErrDuplicateRequest = errors.New("promotion request already pending")
	// ErrAlreadyResolved indicates the promotion request reached a terminal state.
	ErrAlreadyResolved = errors.New("promotion request already resolved")
	// ErrAlreadyReverted indicates the audit entry was reverted before.
	ErrAlreadyReverted = errors.New("audit entry already reverted")
	// ErrNotRevertible indicates the audit entry's action type has no inverse.
	ErrNotRevertible = errors.New("audit entry not revertible")
	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

package engine

import (
	"errors"
	"fmt"
)

// Business rejections. Callers branch on these; none of them aborts the
// process and none leaves a partial mutation behind.
var (
	ErrBudgetExhausted    = errors.New("daily action budget exhausted")
	ErrUnauthorized       = errors.New("not a moderator of this community")
	ErrElectionInProgress = errors.New("an election is already in progress")
	ErrAlreadyCandidate   = errors.New("already running in this election")
	ErrElectionClosed     = errors.New("election is closed")
	ErrProposalClosed     = errors.New("proposal voting window is closed")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrNotFound           = errors.New("not found")
	ErrNameTaken          = errors.New("name already taken")
	ErrUnknownConfigKey   = errors.New("unknown config key")
	ErrInvalidConfigValue = errors.New("invalid config value")
)

// BannedError rejects a community-scoped write from a banned citizen.
// Reason is shown to the user verbatim.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("banned from this community: %s", e.Reason)
}

// StorageError wraps a persistence failure. It is the only error class
// that is not a business outcome; the engine never retries it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

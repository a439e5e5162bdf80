package domain

import "errors"

// Arbitration errors. Always recoverable by re-acquiring a session.
var (
	// ErrSessionBusy is returned when another session is still live.
	ErrSessionBusy = errors.New("another session is active")
	// ErrSessionExpired is returned on heartbeat with a stale or unknown token.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnauthorized is returned when an operation is attempted without a
	// valid, current session token.
	ErrUnauthorized = errors.New("invalid or missing session token")
)

// Validation errors. Caller mistakes or stale client state; surfaced verbatim
// and detected before any mutation.
var (
	ErrFolderExists       = errors.New("folder already exists")
	ErrReservedName       = errors.New("folder name is reserved")
	ErrInvalidName        = errors.New("invalid folder name")
	ErrFolderNotFound     = errors.New("folder not found")
	ErrFolderNotDeletable = errors.New("folder is not empty or has pending actions")
	ErrAlreadyPending     = errors.New("image already has a pending action")
	ErrImageNotFound      = errors.New("image not found in input folder")
	ErrReservedTarget     = errors.New("cannot target the input folder")
	ErrEmptyStack         = errors.New("no pending actions to undo")
	ErrNothingToCommit    = errors.New("no pending actions to commit")
	ErrNoImageAvailable   = errors.New("no images available in input folder")
)

// ErrTrainingFailed wraps classifier fit failures. Filesystem state stays
// authoritative; a failed fit only leaves predictions stale.
var ErrTrainingFailed = errors.New("classifier training failed")

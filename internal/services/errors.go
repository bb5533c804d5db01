package services

import "errors"

// Validation errors: nothing was persisted, safe to retry after fixing input.
var (
	ErrTooFewEntries    = errors.New("transaction needs at least two entries")
	ErrInvalidEntry     = errors.New("entry must have exactly one positive side")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownAccount   = errors.New("unknown account")
	ErrInactiveAccount  = errors.New("inactive account")
	ErrUnbalanced       = errors.New("transaction debits and credits do not balance")
	ErrCurrencyRequired = errors.New("currency is required")
)

// Registry errors.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateCode      = errors.New("account code already exists")
	ErrInvalidParent      = errors.New("parent account does not resolve")
	ErrInvalidAccountSpec = errors.New("invalid account spec")
	ErrAccountInUse       = errors.New("account has a non-zero balance")
)

// Reversal errors.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
	ErrNotCompleted        = errors.New("transaction is not completed")
)

// Integrity errors are never silently corrected; they indicate a bug or
// tampering and are surfaced to operators.
var (
	ErrBalanceDrift       = errors.New("balance cache disagrees with ledger")
	ErrLedgerOutOfBalance = errors.New("trial balance does not reconcile")
)

// ErrStorageUnavailable wraps exhausted write-conflict retries and other
// transient storage failures. Callers retry with the same reference id.
var ErrStorageUnavailable = errors.New("storage unavailable")

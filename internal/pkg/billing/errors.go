package billing

import "errors"

// Business-rule refusals. The allocator reports these as negative boolean
// results to its callers; they exist as named errors so transaction bodies can
// roll back cleanly and tests can assert on the reason.
var (
	ErrNoSuchUser      = errors.New("billing: user does not exist")
	ErrSlotsExhausted  = errors.New("billing: no purchased slots available")
	ErrGuildAtCapacity = errors.New("billing: guild reached max boost limit")
	ErrBoostNotFound   = errors.New("billing: no boost found for guild/user")
)

// Boundary failures surfaced distinctly so the HTTP layer can pick a status
// without touching the ledger.
var (
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	ErrMalformedPayload = errors.New("billing: malformed webhook payload")
)

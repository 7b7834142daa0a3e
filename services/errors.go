package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so adapters can pick a status and message without string matching.
type Kind int

const (
	// KindStorage covers store I/O failures and anything unclassified. It is the only kind worth retrying.
	KindStorage Kind = iota
	KindNotFound
	KindAlreadyDone
	KindInsufficientFunds
	KindOutOfStock
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyDone:
		return "already_done"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindOutOfStock:
		return "out_of_stock"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "storage_failure"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrAccountNotFound      = newError(KindNotFound, "ledger: account not found")
	ErrRaffleNotFound       = newError(KindNotFound, "ledger: raffle not found")
	ErrProductNotFound      = newError(KindNotFound, "ledger: product not found")
	ErrReferralCodeNotFound = newError(KindNotFound, "ledger: referral code not found")
	ErrNoEntries            = newError(KindNotFound, "ledger: raffle has no entries")

	ErrAlreadyCheckedIn   = newError(KindAlreadyDone, "ledger: already checked in today")
	ErrDuplicateEntry     = newError(KindAlreadyDone, "ledger: already entered this raffle")
	ErrAlreadyReferred    = newError(KindAlreadyDone, "ledger: account already referred")
	ErrRaffleAlreadyDrawn = newError(KindAlreadyDone, "ledger: raffle winner already drawn")

	ErrInsufficientFunds = newError(KindInsufficientFunds, "ledger: insufficient funds")
	ErrOutOfStock        = newError(KindOutOfStock, "ledger: product out of stock")

	ErrInvalidInput   = newError(KindInvalidInput, "ledger: invalid input")
	ErrSelfReferral   = newError(KindInvalidInput, "ledger: cannot redeem own referral code")
	ErrRaffleClosed   = newError(KindInvalidInput, "ledger: raffle is not open")
	ErrUnknownSetting = newError(KindInvalidInput, "ledger: unknown setting")
)

// KindOf reports the kind of err. Errors that carry no kind, including raw driver errors, are storage failures.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindStorage
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

package ledger

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilAccount         = errors.New("account must not be nil")
	ErrNilTransaction     = errors.New("transaction must not be nil")
	ErrInvariantViolation = errors.New("ledger invariant violation")
	ErrDuplicateParty     = errors.New("ledger party already exists")
	ErrDuplicateAccount   = errors.New("ledger account already exists")
)

// ViolationKind names the invariant a violation breaks
type ViolationKind string

const (
	ViolationUnbalanced        ViolationKind = "UNBALANCED"
	ViolationTooFewEntries     ViolationKind = "TOO_FEW_ENTRIES"
	ViolationAssetTypeMismatch ViolationKind = "ASSET_TYPE_MISMATCH"
	ViolationPrecision         ViolationKind = "PRECISION"
)

// Violation is a single broken invariant with a human-readable message
type Violation struct {
	Kind    ViolationKind
	Message string
}

// ViolationError carries every violation found for one object. It matches ErrInvariantViolation.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.Message)
	}
	return "ledger invariant violation: " + strings.Join(messages, "; ")
}

func (e *ViolationError) Unwrap() error {
	return ErrInvariantViolation
}

// Has reports whether a violation of the given kind is present
func (e *ViolationError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// NewViolationError returns nil when there are no violations
func NewViolationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ViolationError{Violations: violations}
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "ledger account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no ID
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrTransactionNotFound indicates missing ledger transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "ledger transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries no ID
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrPartyNotFound indicates missing party
type ErrPartyNotFound struct {
	PartyType PartyType
	OwnerID   string
}

func (e ErrPartyNotFound) Error() string {
	return "ledger party not found: " + string(e.PartyType) + "/" + e.OwnerID
}

package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")

	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrTerminalStateLocked = errors.New("terminal state locked")
	ErrIncompleteTeamWork  = errors.New("incomplete team work")
	ErrDuplicateMember     = errors.New("duplicate member")
	ErrInsufficientBudget  = errors.New("insufficient budget")
	ErrOutOfWindow         = errors.New("outside availability window")
	ErrConflict            = errors.New("schedule conflict")
	ErrBudgetExceeded      = errors.New("budget exceeded")
	ErrAccountRestricted   = errors.New("account restricted")
)

// IsConflict reports whether err belongs to the conflict family of failures.
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrInvalidState,
		ErrInvalidTransition,
		ErrTerminalStateLocked,
		ErrIncompleteTeamWork,
		ErrDuplicateMember,
		ErrInsufficientBudget,
		ErrOutOfWindow,
		ErrConflict,
		ErrBudgetExceeded,
		ErrAccountRestricted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

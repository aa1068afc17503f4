package identity

import "errors"

var (
	// ErrInvalidCredentials covers every login failure cause (unknown user,
	// inactive account, wrong password) so responses never reveal which
	// check failed.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrUnauthorized covers missing/invalid/expired tokens, invalid access
	// codes and reuse-detected refresh tokens.
	ErrUnauthorized = errors.New("identity: unauthorized")

	// ErrForbidden means the caller is authenticated but lacks the required
	// permissions.
	ErrForbidden = errors.New("identity: forbidden")

	// ErrResetCodeInvalid is the single error for any password-reset confirm
	// failure; wrong code and expired code are deliberately identical.
	ErrResetCodeInvalid = errors.New("identity: invalid or expired code")

	ErrInvalidInput = errors.New("identity: invalid input")
	ErrNotFound     = errors.New("identity: not found")
	ErrConflict     = errors.New("identity: resource conflict")
)

package ayushya

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrChallengeNotFound is returned when no pending challenge exists for a contact point.
var ErrChallengeNotFound = goerrors.New("challenge not found", goerrors.CategoryNotFound).
	WithTextCode("CHALLENGE_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrChallengeExpired is returned when a challenge is past its verification window.
var ErrChallengeExpired = goerrors.New("challenge expired", goerrors.CategoryAuth).
	WithTextCode("CHALLENGE_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrAttemptsExhausted is returned once a challenge has consumed its attempt budget.
var ErrAttemptsExhausted = goerrors.New("challenge attempts exhausted", goerrors.CategoryAuth).
	WithTextCode("CHALLENGE_ATTEMPTS_EXHAUSTED").
	WithCode(goerrors.CodeUnauthorized)

// ErrCodeMismatch is returned when the presented code does not match the pending challenge.
var ErrCodeMismatch = goerrors.New("challenge code mismatch", goerrors.CategoryAuth).
	WithTextCode("CHALLENGE_CODE_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is the error we return for expired JWTs
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the error we return for tokens we cannot parse or verify
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is the single error surfaced to clients for any failed
// verification. The underlying reason stays in logs and audit records.
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidEmail is returned when a contact point does not parse as an address.
var ErrInvalidEmail = goerrors.New("invalid email address", goerrors.CategoryBadInput).
	WithTextCode("INVALID_EMAIL").
	WithCode(goerrors.CodeBadRequest)

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryNotFound).
	WithTextCode("SESSION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFound is returned when an account lookup misses.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrUserDeactivated is returned when a deactivated account tries to authenticate.
var ErrUserDeactivated = goerrors.New("user is deactivated", goerrors.CategoryAuth).
	WithTextCode("USER_DEACTIVATED").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode("CLAIMS_UNMAPPABLE").
	WithCode(goerrors.CodeUnauthorized)

// IsUnauthorizedError reports whether err carries an auth category, regardless
// of the specific verification failure behind it.
func IsUnauthorizedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}

// collapseAuthError maps any verification failure to ErrUnauthorized while
// keeping the original text code in metadata for audit trails.
func collapseAuthError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ErrUnauthorized.WithMetadata(map[string]any{
			"reason": richErr.TextCode,
		})
	}
	return ErrUnauthorized
}

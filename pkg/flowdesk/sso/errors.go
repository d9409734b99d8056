package sso

import "errors"

// Error is a terminal SSO failure with a stable reason code. Every failure
// in the issue/verify chain is one of these; nothing is retried internally.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrModuleNotFound       = &Error{Code: "MODULE_NOT_FOUND", Message: "Module not found or inactive"}
	ErrModuleNotPurchased   = &Error{Code: "MODULE_NOT_PURCHASED", Message: "Organization has no active entitlement for this module"}
	ErrModuleURLMissing     = &Error{Code: "MODULE_URL_MISSING", Message: "Module has no redirect URL configured"}
	ErrInvalidClient        = &Error{Code: "INVALID_CLIENT", Message: "Unknown client ID"}
	ErrInvalidClientSecret  = &Error{Code: "INVALID_CLIENT_SECRET", Message: "Client secret mismatch"}
	ErrTokenInvalid         = &Error{Code: "TOKEN_INVALID", Message: "Token unknown or signature invalid"}
	ErrTokenUsed            = &Error{Code: "TOKEN_USED", Message: "Token has already been used"}
	ErrTokenExpired         = &Error{Code: "TOKEN_EXPIRED", Message: "Token has expired"}
	ErrTokenModuleMismatch  = &Error{Code: "TOKEN_MODULE_MISMATCH", Message: "Token was issued for a different module"}
	ErrUserNotFound         = &Error{Code: "USER_NOT_FOUND", Message: "Token user no longer exists"}
	ErrOrganizationNotFound = &Error{Code: "ORGANIZATION_NOT_FOUND", Message: "Token organization no longer exists"}
)

// AsError unwraps err into an *Error if it carries a reason code.
func AsError(err error) (*Error, bool) {
	var ssoErr *Error
	if errors.As(err, &ssoErr) {
		return ssoErr, true
	}
	return nil, false
}

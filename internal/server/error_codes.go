package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidHash      = 1004
	ErrCodeMissingRequired  = 1009
	ErrCodeFileRejected     = 1020
	ErrCodeMultipartInvalid = 1021

	// Domain state (2xxx)
	ErrCodeImageNotFound = 2001
	ErrCodeBlobMissing   = 2002
	ErrCodeImageExpired  = 2010

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeTokenInvalid      = 3010
	ErrCodeTokenMismatch     = 3011

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeBlobFailure    = 4003
	ErrCodeSnapshotFailed = 4004
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeImageNotFound
	case 410:
		return ErrCodeImageExpired
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}

package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2000
	ErrAuthTokenExpired = 2001

	// Media errors (3000-3999)
	ErrMediaInvalidType  = 3000
	ErrMediaTooLarge     = 3001
	ErrMediaNotFound     = 3002
	ErrMediaGrantFailed  = 3003
	ErrMediaGrantDenied  = 3004
	ErrMediaTransport    = 3005
	ErrMediaTransient    = 3006
	ErrMediaStoreFailed  = 3007
	ErrSituationNotFound = 3008
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Auth errors
	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},

	// Media errors
	ErrMediaInvalidType:  {ErrMediaInvalidType, http.StatusBadRequest, "Unsupported media type"},
	ErrMediaTooLarge:     {ErrMediaTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrMediaNotFound:     {ErrMediaNotFound, http.StatusNotFound, "Media not found"},
	ErrMediaGrantFailed:  {ErrMediaGrantFailed, http.StatusInternalServerError, "Upload grant could not be issued"},
	ErrMediaGrantDenied:  {ErrMediaGrantDenied, http.StatusForbidden, "Upload grant rejected by storage"},
	ErrMediaTransport:    {ErrMediaTransport, http.StatusBadGateway, "Upload transport failed"},
	ErrMediaTransient:    {ErrMediaTransient, http.StatusServiceUnavailable, "Storage service temporarily unavailable"},
	ErrMediaStoreFailed:  {ErrMediaStoreFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrSituationNotFound: {ErrSituationNotFound, http.StatusNotFound, "Situation not found"},
}

// GetCode resolves code, falling back to the internal server entry for
// codes missing from the table.
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns the HTTP status mapped to code.
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the canonical message mapped to code.
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError renders the canonical message, appending detail text when
// present.
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}

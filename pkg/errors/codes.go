package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Aliases used by call sites that predate the module-prefixed names.
const (
	CodeUnknown      = ErrorCode("")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeForbidden    = ErrCodeForbidden
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// Chemistry identity error codes.
const (
	ErrCodeMalformedIdentifier   ErrorCode = "CHEM_001"
	ErrCodeNotAReaction          ErrorCode = "CHEM_002"
	ErrCodeIdentityMismatch      ErrorCode = "CHEM_003"
	ErrCodeInvalidKeyType        ErrorCode = "CHEM_004"
	ErrCodePreconditionViolation ErrorCode = "CHEM_005"
	ErrCodeOracleUnavailable     ErrorCode = "CHEM_006"
)

// Collection error codes.
const (
	ErrCodeCollectionNotFound ErrorCode = "COLL_001"
	ErrCodeCollectionExists   ErrorCode = "COLL_002"
)

// User error codes.
const (
	ErrCodeUserNotFound      ErrorCode = "USER_001"
	ErrCodeUserAlreadyExists ErrorCode = "USER_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,

	ErrCodeMalformedIdentifier:   http.StatusBadRequest,
	ErrCodeNotAReaction:          http.StatusUnsupportedMediaType,
	ErrCodeIdentityMismatch:      http.StatusUnsupportedMediaType,
	ErrCodeInvalidKeyType:        http.StatusInternalServerError,
	ErrCodePreconditionViolation: http.StatusConflict,
	ErrCodeOracleUnavailable:     http.StatusBadGateway,

	ErrCodeCollectionNotFound: http.StatusNotFound,
	ErrCodeCollectionExists:   http.StatusConflict,

	ErrCodeUserNotFound:      http.StatusNotFound,
	ErrCodeUserAlreadyExists: http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "Unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeMalformedIdentifier:   "malformed chemical identifier",
	ErrCodeNotAReaction:          "Not a reaction SMILES string",
	ErrCodeIdentityMismatch:      "geometry does not match the stored identity",
	ErrCodeInvalidKeyType:        "invalid key type",
	ErrCodePreconditionViolation: "reaction participants are missing",
	ErrCodeOracleUnavailable:     "chemistry oracle unavailable",

	ErrCodeCollectionNotFound: "collection not found",
	ErrCodeCollectionExists:   "a collection with this name already exists",

	ErrCodeUserNotFound:      "user not found",
	ErrCodeUserAlreadyExists: "A user with this email already exists",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
	assert.Equal(t, "CHEM_002", ErrCodeNotAReaction.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeUnauthorized, 401},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeMalformedIdentifier, 400},
		{ErrCodeNotAReaction, 415},
		{ErrCodeIdentityMismatch, 415},
		{ErrCodeInvalidKeyType, 500},
		{ErrCodePreconditionViolation, 409},
		{ErrCodeUserAlreadyExists, 409},
		{ErrCodeFeatureDisabled, 501},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), tt.code.String())
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "Not a reaction SMILES string", DefaultMessageForCode(ErrCodeNotAReaction))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeIdentityMismatch))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeDatabaseError))
	assert.True(t, IsServerError(ErrCodeOracleUnavailable))
	assert.False(t, IsServerError(ErrCodeNotFound))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "CHEM", ModuleForCode(ErrCodeMalformedIdentifier))
	assert.Equal(t, "COLL", ModuleForCode(ErrCodeCollectionNotFound))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestEveryCodeHasStatusAndMessage(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing message for %s", code)
	}
}

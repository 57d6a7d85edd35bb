package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumberBR(t *testing.T) {
	assert.Equal(t, "0", FormatNumberBR(0, 0))
	assert.Equal(t, "1.950", FormatNumberBR(1950, 0))
	assert.Equal(t, "12.345,50", FormatNumberBR(12345.5, 2))
	assert.Equal(t, "-1.000,0", FormatNumberBR(-1000, 1))
	assert.Equal(t, "999", FormatNumberBR(999, 0))
}

func TestTokenRoundTripAndBlacklist(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken("user-1", "Maria", "Supervisor")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Supervisor", claims.Role)

	BlacklistToken(token)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	SetJWTSecret("one")
	token, err := GenerateToken("u", "n", "Encarregado")
	require.NoError(t, err)

	SetJWTSecret("two")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(NewValidationError("note", "motivo obrigatório")))
	assert.Equal(t, http.StatusForbidden, StatusFor(fmt.Errorf("approve: %w", ErrForbidden)))
	assert.Equal(t, http.StatusNotFound, StatusFor(ErrNotFound))
	assert.Equal(t, http.StatusNotImplemented, StatusFor(ErrPrivilegedNotConfigured))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("db down")))
}

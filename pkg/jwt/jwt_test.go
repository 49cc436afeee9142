package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	id := uuid.New()

	token, err := m.Generate(id, "cashier@example.com", "Cashier", "CASHIER", []string{"sale:create"}, "v1")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "CASHIER", claims.RoleCode)
	assert.Equal(t, []string{"sale:create"}, claims.Privileges)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	other := NewManager("other-secret", time.Hour)

	token, err := other.Generate(uuid.New(), "a@b.c", "A", "", nil, "")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	expired := NewManager("test-secret", time.Nanosecond)
	token, err = expired.Generate(uuid.New(), "a@b.c", "A", "", nil, "")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

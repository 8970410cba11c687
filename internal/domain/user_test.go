package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/domain"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("  Jordan@Example.COM ", " Jordan ")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "jordan@example.com", user.Email)
	assert.Equal(t, "Jordan", user.DisplayName)
}

func TestNewUser_ValidationFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		email   string
		wantErr error
	}{
		{name: "empty email", email: "", wantErr: domain.ErrUserEmailEmpty},
		{name: "missing at sign", email: "nope.example.com", wantErr: domain.ErrUserEmailInvalid},
		{name: "at sign first", email: "@example.com", wantErr: domain.ErrUserEmailInvalid},
		{name: "at sign last", email: "nope@", wantErr: domain.ErrUserEmailInvalid},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := domain.NewUser(tc.email, "Someone")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memoryAccountRepo struct {
	accounts map[string]Account
}

func (m *memoryAccountRepo) FindByEmail(_ context.Context, email string) (Account, error) {
	acct, ok := m.accounts[email]
	if !ok {
		return Account{}, errors.New("no rows in result set")
	}
	return acct, nil
}

func TestLogin(t *testing.T) {
	sessions, _ := newTestSessions(t)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	repo := &memoryAccountRepo{accounts: map[string]Account{
		"jane@novadent.co.ke": {ID: "u1", Email: "jane@novadent.co.ke", Name: "Jane Achieng", Role: RoleDentist, PasswordHash: hash, IsActive: true},
		"old@novadent.co.ke":  {ID: "u2", Email: "old@novadent.co.ke", Name: "Former Staff", Role: RoleReceptionist, PasswordHash: hash, IsActive: false},
	}}
	svc := NewService(repo, sessions)
	ctx := context.Background()

	_, _, err = svc.Login(ctx, "nobody@novadent.co.ke", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "jane@novadent.co.ke", "wrong password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "old@novadent.co.ke", "correct horse")
	require.ErrorIs(t, err, ErrAccountDisabled)

	actor, token, err := svc.Login(ctx, "jane@novadent.co.ke", "correct horse")
	require.NoError(t, err)
	require.Equal(t, shared.Actor{ID: "u1", Name: "Jane Achieng", Role: RoleDentist}, actor)
	require.NotEmpty(t, token)

	resolved, err := sessions.Lookup(ctx, token)
	require.NoError(t, err)
	require.Equal(t, actor, resolved)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = sessions.Lookup(ctx, token)
	require.ErrorIs(t, err, shared.ErrSessionExpired)
}

func TestValidRole(t *testing.T) {
	require.True(t, ValidRole(RoleAdmin))
	require.True(t, ValidRole(RoleDentist))
	require.True(t, ValidRole(RoleReceptionist))
	require.False(t, ValidRole("superuser"))
	require.False(t, ValidRole(""))
}

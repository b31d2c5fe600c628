// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumennodes/portal/internal/core"
)

func newTestService(t *testing.T) (*Service, *memUsers, *memRevocations) {
	t.Helper()
	users := newMemUsers()
	revs := newMemRevocations()
	return NewService(newTestSigner(t, time.Hour), users, revs, nil), users, revs
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{
		Email:    "Player@Lumen.test",
		Password: "hunter2hunter2",
		Name:     "Player",
	})
	require.NoError(t, err)
	assert.Equal(t, "player@lumen.test", reg.User.Email)
	assert.Equal(t, "USER", reg.User.Role)
	assert.NotEmpty(t, reg.Token)

	login, err := svc.Login(ctx, LoginRequest{
		Email:    "player@lumen.test",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	req := RegisterRequest{Email: "dup@lumen.test", Password: "password123", Name: "Dup"}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email: "known@lumen.test", Password: "password123", Name: "Known",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "known@lumen.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@lumen.test", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterRequest{
		Email: "bye@lumen.test", Password: "password123", Name: "Bye",
	})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	_, err = svc.VerifyAccessToken(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRoleChangeInvalidatesOldSessions(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterRequest{
		Email: "promo@lumen.test", Password: "password123", Name: "Promo",
	})
	require.NoError(t, err)

	users.setRole(sess.User.ID, "ADMIN")

	_, err = svc.VerifyAccessToken(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	fresh, err := svc.Login(ctx, LoginRequest{Email: "promo@lumen.test", Password: "password123"})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestVerifyFailsClosedWhenRevocationStoreErrors(t *testing.T) {
	svc, _, revs := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterRequest{
		Email: "redis@lumen.test", Password: "password123", Name: "Redis",
	})
	require.NoError(t, err)

	revs.err = errors.New("connection refused")

	_, err = svc.VerifyAccessToken(ctx, sess.Token)
	assert.Error(t, err)
}

func TestChangePasswordLogsOutEverywhere(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterRequest{
		Email: "pw@lumen.test", Password: "password123", Name: "Pw",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, sess.User.ID, ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "newpassword456",
	})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = svc.Login(ctx, LoginRequest{Email: "pw@lumen.test", Password: "newpassword456"})
	assert.NoError(t, err)
}

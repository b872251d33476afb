package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/testutil"
)

func newService(t *testing.T) (*auth.Service, *auth.TokenIssuer, *testutil.UserStore) {
	t.Helper()
	store := testutil.NewUserStore()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return auth.NewService(store, issuer, bcrypt.MinCost), issuer, store
}

func TestRegisterThenLogin(t *testing.T) {
	svc, issuer, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	tok, err := svc.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Login(context.Background(), "ghost@x.com", "pw123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterRequest{Email: " A@X.com ", Password: "other"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []auth.RegisterRequest{
		{Email: "", Password: "pw"},
		{Email: "a@x.com", Password: ""},
		{Email: "not-an-email", Password: "pw"},
	}
	for _, req := range cases {
		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, auth.ErrValidation, "request %+v", req)
	}
}

func TestLogin_StoreFailureIsNotUnauthorized(t *testing.T) {
	svc, _, store := newService(t)
	store.Err = errors.New("connection reset")

	_, err := svc.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/notify"
	"reign/internal/storage"
)

type fakePoster struct {
	endpoint string
	body     any
	resp     authResponse
	err      error
}

func (f *fakePoster) Post(_ context.Context, endpoint string, body, out any) error {
	f.endpoint = endpoint
	f.body = body
	if f.err != nil {
		return f.err
	}
	*(out.(*authResponse)) = f.resp
	return nil
}

func TestLoginStateFollowsToken(t *testing.T) {
	st := storage.NewMemory(0)
	s := New(st, nil, nil)

	assert.False(t, s.IsLoggedIn())
	require.NoError(t, s.SetToken("tok"))
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "tok", s.Token())
}

func TestUserMalformedIsNil(t *testing.T) {
	st := storage.NewMemory(0)
	s := New(st, nil, nil)

	assert.Nil(t, s.User())

	require.NoError(t, st.SetItem(UserKey, "{not json"))
	assert.Nil(t, s.User())

	require.NoError(t, s.SetUser(&User{ID: 7, Email: "a@b.c", Roles: []string{"admin"}}))
	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, uint64(7), u.ID)
	assert.True(t, u.IsAdmin())
}

func TestLogoutClearsEverything(t *testing.T) {
	st := storage.NewMemory(0)
	var toasts []string
	s := New(st, nil, notify.Func(func(_ notify.Level, msg string) { toasts = append(toasts, msg) }))
	var redirectedTo string
	s.OnRedirect(func(p string) { redirectedTo = p })

	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.SetUser(&User{ID: 1, Email: "a@b.c"}))

	s.Logout()

	assert.False(t, s.IsLoggedIn())
	assert.Nil(t, s.User())
	assert.Zero(t, st.Len())
	assert.Equal(t, "/", redirectedTo)
	assert.Equal(t, []string{"Logged out"}, toasts)
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	s := New(storage.NewMemory(0), nil, nil)
	api := &fakePoster{resp: authResponse{Token: "jwt", User: &User{ID: 3, Email: "ada@example.com"}}}

	u, err := s.Login(context.Background(), api, " ada@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", api.endpoint)
	assert.Equal(t, "ada@example.com", api.body.(map[string]string)["email"])
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, "jwt", s.Token())
	assert.Equal(t, "ada@example.com", s.User().Email)
}

func TestLoginErrorLeavesSessionEmpty(t *testing.T) {
	s := New(storage.NewMemory(0), nil, nil)
	boom := errors.New("invalid credentials")

	_, err := s.Login(context.Background(), &fakePoster{err: boom}, "a@b.c", "x")
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.IsLoggedIn())

	_, err = s.Register(context.Background(), &fakePoster{}, "Ada", "a@b.c", "x")
	assert.Error(t, err, "response without token is rejected")
	assert.False(t, s.IsLoggedIn())
}

// Package session holds the signed-in user's bearer token and profile.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"reign/internal/logging"
	"reign/internal/notify"
	"reign/internal/storage"
)

const (
	TokenKey = "reign_token"
	UserKey  = "reign_user"
)

type User struct {
	ID    uint64   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// Poster is the slice of the remote client the session needs for auth calls.
type Poster interface {
	Post(ctx context.Context, endpoint string, body, out any) error
}

type Session struct {
	storage  storage.Storage
	logger   *zap.Logger
	notifier notify.Notifier
	redirect func(path string)
}

func New(st storage.Storage, logger *zap.Logger, notifier notify.Notifier) *Session {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Session{
		storage:  st,
		logger:   logging.OrNop(logger).Named("session"),
		notifier: notifier,
		redirect: func(string) {},
	}
}

// OnRedirect sets what Logout does to send the user back to the app root.
func (s *Session) OnRedirect(fn func(path string)) {
	if fn != nil {
		s.redirect = fn
	}
}

// Token returns the stored bearer token, or "" when signed out.
func (s *Session) Token() string {
	v, ok, err := s.storage.GetItem(TokenKey)
	if err != nil {
		s.logger.Warn("read token failed", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Session) SetToken(token string) error {
	return s.storage.SetItem(TokenKey, token)
}

func (s *Session) IsLoggedIn() bool {
	return s.Token() != ""
}

// User returns the stored profile. A missing or malformed profile is nil.
func (s *Session) User() *User {
	raw, ok, err := s.storage.GetItem(UserKey)
	if err != nil || !ok || raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("stored user is malformed", zap.Error(err))
		return nil
	}
	return &u
}

func (s *Session) SetUser(u *User) error {
	if u == nil {
		return s.storage.RemoveItem(UserKey)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.SetItem(UserKey, string(b))
}

// Logout clears the token and profile together and returns to the app root.
// It cannot be undone.
func (s *Session) Logout() {
	if err := s.storage.RemoveItem(TokenKey); err != nil {
		s.logger.Error("clear token failed", zap.Error(err))
	}
	if err := s.storage.RemoveItem(UserKey); err != nil {
		s.logger.Error("clear user failed", zap.Error(err))
	}
	s.notifier.Notify(notify.Info, "Logged out")
	s.redirect("/")
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login exchanges credentials for a token and stores both token and profile.
// Remote errors are returned unchanged.
func (s *Session) Login(ctx context.Context, api Poster, email, password string) (*User, error) {
	var resp authResponse
	err := api.Post(ctx, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return s.adopt(resp)
}

func (s *Session) Register(ctx context.Context, api Poster, name, email, password string) (*User, error) {
	var resp authResponse
	err := api.Post(ctx, "/auth/register", map[string]string{
		"name":     strings.TrimSpace(name),
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return s.adopt(resp)
}

func (s *Session) adopt(resp authResponse) (*User, error) {
	if resp.Token == "" {
		return nil, fmt.Errorf("auth response carried no token")
	}
	if err := s.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := s.SetUser(resp.User); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	s.logger.Info("signed in", zap.Stringp("email", emailOf(resp.User)))
	return resp.User, nil
}

func emailOf(u *User) *string {
	if u == nil {
		return nil
	}
	return &u.Email
}

package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"reign/internal/auth"
)

const minPasswordLen = 8

type AuthHandler struct {
	Users  auth.Users
	JWT    *auth.JWT
	Logger *zap.Logger
	// IsAdminEmail decides who gets the admin role at registration.
	IsAdminEmail func(email string) bool
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID    uint64   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type authResp struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func viewOf(u *auth.User) userView {
	roles := []string(u.Roles)
	if roles == nil {
		roles = []string{}
	}
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Roles: roles}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") || len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.serverError(w, "hash password", err)
		return
	}

	u := auth.User{Email: req.Email, Name: req.Name, PasswordHash: hash, Roles: pq.StringArray{}, CreatedAt: time.Now()}
	if h.IsAdminEmail != nil && h.IsAdminEmail(req.Email) {
		u.Roles = append(u.Roles, auth.RoleAdmin)
	}
	if err := h.Users.Create(r.Context(), &u); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already used")
			return
		}
		h.serverError(w, "create user", err)
		return
	}

	h.issue(w, http.StatusCreated, &u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}

	u, err := h.Users.ByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		h.serverError(w, "find user", err)
		return
	}
	if u == nil || !auth.ComparePassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	if err := h.Users.TouchLogin(r.Context(), u.ID, time.Now()); err != nil {
		h.log().Warn("record login failed", zap.Uint64("user", u.ID), zap.Error(err))
	}
	h.issue(w, http.StatusOK, u)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	u, err := h.Users.ByID(r.Context(), uid)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err != nil {
		h.serverError(w, "find user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(u)})
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, u *auth.User) {
	token, err := h.JWT.Sign(u.ID, u.Roles)
	if err != nil {
		h.serverError(w, "sign token", err)
		return
	}
	writeJSON(w, status, authResp{Token: token, User: viewOf(u)})
}

func (h *AuthHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.log().Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "server error")
}

func (h *AuthHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

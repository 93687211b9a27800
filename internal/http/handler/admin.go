package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"reign/internal/admin"
	"reign/internal/auth"
)

const (
	defaultRevisionLimit = 50
	maxRevisionLimit     = 500
)

type AdminHandler struct {
	Svc    *admin.Service
	Logger *zap.Logger
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Overview(r.Context())
	if err != nil {
		h.fail(w, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AdminHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	limit := defaultRevisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRevisionLimit)
	}

	revs, err := h.Svc.Revisions(r.Context(), id, limit)
	if err != nil {
		h.fail(w, "list revisions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if self, _ := auth.UserIDFromContext(r.Context()); self == id {
		writeError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := h.Svc.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if h.Logger != nil {
		h.Logger.Error(op, zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, "server error")
}

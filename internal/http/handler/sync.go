package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"reign/internal/auth"
	"reign/internal/docsync"
	"reign/internal/journal"
)

type SyncHandler struct {
	Svc    *docsync.Service
	Logger *zap.Logger
}

// Upload stores the posted document as the caller's current copy.
func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var env journal.SyncEnvelope
	if !decodeJSON(w, r, &env) {
		return
	}
	if env.AppData == nil {
		writeError(w, http.StatusBadRequest, "appData required")
		return
	}

	rev, err := h.Svc.Upload(r.Context(), uid, env, idemKey(r))
	if err != nil {
		if errors.Is(err, docsync.ErrInvalidDocument) {
			writeError(w, http.StatusBadRequest, "invalid document")
			return
		}
		if h.Logger != nil {
			h.Logger.Error("store upload", zap.Uint64("user", uid), zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": rev.ID})
}

func (h *SyncHandler) Download(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	resp, err := h.Svc.Download(r.Context(), uid)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("load document", zap.Uint64("user", uid), zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

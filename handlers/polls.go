// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/voting"
)

type PollHandler struct {
	svc    *voting.Service
	cfg    cliparse.Config
	logger *slog.Logger
}

func NewPollHandler(svc *voting.Service, cfg cliparse.Config, logger *slog.Logger) *PollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollHandler{svc: svc, cfg: cfg, logger: logger}
}

// GetPoll handles GET /polls/{pollId}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollKey := chi.URLParam(r, "pollId")

	state, err := h.svc.PollState(r.Context(), pollKey)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodePollNotFound, "")
		return
	}
	if err != nil {
		h.logger.Error("failed to read poll state", "error", err, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, state)
}

// Reconcile handles POST /polls/{pollId}/reconcile
func (h *PollHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	pollKey := chi.URLParam(r, "pollId")

	adminKey := r.Header.Get("X-Admin-Key")
	if adminKey == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "X-Admin-Key header required")
		return
	}

	poll, err := h.svc.Resolve(r.Context(), pollKey)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodePollNotFound, "")
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve poll", "error", err, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	// the key is bound to the canonical id, never the slug
	if err := auth.ValidateAdminKey(poll.ID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid admin key")
		return
	}

	result, err := h.svc.Reconcile(r.Context(), poll.ID)
	if err != nil {
		h.logger.Error("failed to reconcile poll", "error", err, "poll_id", poll.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	h.logger.Info("poll reconciled", "poll_id", poll.ID, "corrected", result.Corrected)
	middleware.JSONResponse(w, http.StatusOK, result)
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/voting"
)

type VoteHandler struct {
	svc    *voting.Service
	cfg    cliparse.Config
	logger *slog.Logger

	now func() time.Time
}

func NewVoteHandler(svc *voting.Service, cfg cliparse.Config, logger *slog.Logger) *VoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteHandler{svc: svc, cfg: cfg, logger: logger, now: time.Now}
}

// CastVote handles POST /polls/{pollId}/votes
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollKey := chi.URLParam(r, "pollId")

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	res, err := h.svc.CastVote(r.Context(), admission.Request{
		PollID:          pollKey,
		OptionID:        req.OptionID,
		VoterIdentity:   req.VoterIdentity,
		FingerprintHash: auth.FingerprintIP(middleware.GetClientIP(r), h.cfg.FingerprintSalt),
	})
	if errors.Is(err, admission.ErrInvalidRequest) {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to cast vote", "error", err, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	switch res.Outcome {
	case admission.Admitted:
		middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{OK: true})
	case admission.AlreadyVoted:
		middleware.JSONResponse(w, http.StatusForbidden, models.ErrorResponse{
			Error:    models.ErrCodeAlreadyVoted,
			OptionID: res.OptionID,
		})
	case admission.NotActive:
		middleware.ErrorResponse(w, http.StatusForbidden, models.ErrCodeNotActive,
			lifecycle.Describe(res.Poll, h.now()))
	case admission.PollNotFound:
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodePollNotFound, "")
	case admission.OptionNotFound:
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodeOptionNotFound, "")
	default:
		h.logger.Error("unknown admission outcome", "outcome", res.Outcome, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
	}
}

// VoteStatus handles GET /polls/{pollId}/votes?voterIdentity=...
func (h *VoteHandler) VoteStatus(w http.ResponseWriter, r *http.Request) {
	pollKey := chi.URLParam(r, "pollId")
	voter := r.URL.Query().Get("voterIdentity")
	if err := auth.ValidateVoterIdentity(voter); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, err.Error())
		return
	}

	status, err := h.svc.VoteStatus(r.Context(), pollKey, voter)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodePollNotFound, "")
		return
	}
	if err != nil {
		h.logger.Error("failed to look up vote", "error", err, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, status)
}

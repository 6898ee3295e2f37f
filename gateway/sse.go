// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// ServeSSE streams pushes for one poll as server-sent events. The stream is
// a single-room session: it joins on connect and leaves on disconnect.
func (g *Gateway) ServeSSE(w http.ResponseWriter, r *http.Request) {
	pollKey := chi.URLParam(r, "pollId")

	poll, err := g.resolver.Resolve(r.Context(), pollKey)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.ErrCodePollNotFound, "")
		return
	}
	if err != nil {
		g.logger.Error("failed to resolve poll", "error", err, "poll_id", pollKey)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.ErrCodeInternal, "")
		return
	}

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		g.logger.Warn("sse flush unsupported", "error", err)
		return
	}

	s := g.open()
	metrics.GatewayConnections.WithLabelValues("sse").Inc()
	defer metrics.GatewayConnections.WithLabelValues("sse").Dec()

	reason := "client closed"
	defer func() { g.close(s, reason) }()

	if !g.joinPoll(s, poll.ID) {
		return
	}

	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case env := <-s.out:
			data, err := json.Marshal(env)
			if err != nil {
				g.logger.Error("failed to encode push", "error", err, "session_id", s.id)
				continue
			}
			if err := g.writeEvent(w, rc, fmt.Sprintf("event: %s\ndata: %s\n\n", env.Type, data)); err != nil {
				reason = "write failed"
				return
			}
		case <-ticker.C:
			if err := g.writeEvent(w, rc, ": ping\n\n"); err != nil {
				reason = "heartbeat failed"
				return
			}
		}
	}
}

func (g *Gateway) writeEvent(w http.ResponseWriter, rc *http.ResponseController, frame string) error {
	// not every writer supports deadlines; the heartbeat still catches dead peers
	_ = rc.SetWriteDeadline(time.Now().Add(g.cfg.DisconnectTimeout))
	if _, err := fmt.Fprint(w, frame); err != nil {
		return err
	}
	return rc.Flush()
}

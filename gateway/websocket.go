// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
)

const maxFrameSize = 4096

// ServeWS upgrades the request and runs the session until the client goes
// away or stops answering pings.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		g.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s := g.open()
	metrics.GatewayConnections.WithLabelValues("websocket").Inc()
	defer metrics.GatewayConnections.WithLabelValues("websocket").Dec()
	g.logger.Debug("websocket session opened", "session_id", s.id, "remote", r.RemoteAddr)

	go g.writePump(conn, s)
	reason := g.readPump(conn, s)
	g.close(s, reason)
	conn.Close()
}

func (g *Gateway) readPump(conn *websocket.Conn, s *Session) string {
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(g.cfg.DisconnectTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.cfg.DisconnectTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "client closed"
			}
			return err.Error()
		}
		conn.SetReadDeadline(time.Now().Add(g.cfg.DisconnectTimeout))

		var frame models.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.Send(errorFrame("", models.ErrCodeInvalidRequest, "malformed frame"))
			continue
		}

		switch frame.Type {
		case models.FrameJoin:
			g.join(context.Background(), s, frame.PollID)
		case models.FrameLeave:
			g.leave(context.Background(), s, frame.PollID)
		default:
			s.Send(errorFrame(frame.PollID, models.ErrCodeInvalidRequest, "unknown frame type"))
		}
	}
}

// writePump is the only writer on conn.
func (g *Gateway) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case env := <-s.out:
			conn.SetWriteDeadline(time.Now().Add(g.cfg.DisconnectTimeout))
			if err := conn.WriteJSON(env); err != nil {
				g.close(s, "write failed")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(g.cfg.DisconnectTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				g.close(s, "ping failed")
				return
			}
		case <-s.done:
			deadline := time.Now().Add(time.Second)
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	// same-origin requests are always fine
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package gateway connects browser sessions to the hub.

# Transports

  - GET /ws: WebSocket. The client sends join/leave frames for any number of
    polls (up to MaxRooms). The server pings every PingInterval; a client
    that sends nothing, pongs included, for DisconnectTimeout is dropped.
  - GET /polls/{pollId}/events: server-sent events for a single poll.
    Pushes are written as "event: <type>" / "data: <envelope>" pairs with
    ": ping" comments as heartbeat.

# Session Lifecycle

Each connection gets a Session with a random id and a bounded outbound
queue. A join adds the session to the room and pushes the current state to
it alone. However the connection ends, the session is removed from every
room exactly once and the remaining viewers get a presence update.

Join failures (unknown poll, too many rooms) are sent to the client as
error frames; the connection stays open.
*/
package gateway

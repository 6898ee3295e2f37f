// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package relay carries vote notifications between server processes.

Presence is per process, but a vote admitted by one instance must reach
viewers connected to every instance. After a vote is admitted the voting
service publishes the poll id; each process listens and calls
hub.NotifyVoteCast, which re-reads the shared database.

Backends, chosen with RELAY:

	local     in-process only (single instance)
	redis     PUBLISH/SUBSCRIBE via go-redis
	postgres  NOTIFY/LISTEN via lib/pq on the application database

Messages are best effort. A notification lost during a reconnect is
recovered by the next vote in that poll or by a client refresh.
*/
package relay

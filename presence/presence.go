// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package presence

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/danielhkuo/livepoll/metrics"
)

const shardCount = 32

// ChangeFunc receives a room's new member count. It runs while the room's
// shard is locked, which keeps calls for one room in order, so it must not
// block or call back into the Registry.
type ChangeFunc func(pollID string, count int)

type roomShard struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{} // poll id -> session ids
}

type sessionShard struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{} // session id -> poll ids
}

// Registry tracks which sessions are viewing which polls. Locks are always
// taken room shard first, then session shard.
type Registry struct {
	rooms    [shardCount]roomShard
	sessions [shardCount]sessionShard

	listenerMu sync.RWMutex
	listeners  []ChangeFunc
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.rooms {
		r.rooms[i].rooms = make(map[string]map[string]struct{})
		r.sessions[i].sessions = make(map[string]map[string]struct{})
	}
	return r
}

// OnChange registers fn for every membership change.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Join adds sessionID to the poll's room and returns the member count.
// Joining a room twice is a no-op.
func (r *Registry) Join(pollID, sessionID string) int {
	rs := r.roomShard(pollID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	members, ok := rs.rooms[pollID]
	if !ok {
		members = make(map[string]struct{})
		rs.rooms[pollID] = members
		metrics.ActiveRooms.Inc()
	}
	if _, member := members[sessionID]; member {
		return len(members)
	}

	members[sessionID] = struct{}{}
	metrics.PresenceSessions.Inc()

	ss := r.sessionShard(sessionID)
	ss.mu.Lock()
	joined, ok := ss.sessions[sessionID]
	if !ok {
		joined = make(map[string]struct{})
		ss.sessions[sessionID] = joined
	}
	joined[pollID] = struct{}{}
	ss.mu.Unlock()

	count := len(members)
	r.notify(pollID, count)
	return count
}

// Leave removes sessionID from the poll's room and returns the member count.
// The room is discarded when its last member leaves.
func (r *Registry) Leave(pollID, sessionID string) int {
	rs := r.roomShard(pollID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	count, changed := r.removeLocked(rs, pollID, sessionID)

	ss := r.sessionShard(sessionID)
	ss.mu.Lock()
	if joined, ok := ss.sessions[sessionID]; ok {
		delete(joined, pollID)
		if len(joined) == 0 {
			delete(ss.sessions, sessionID)
		}
	}
	ss.mu.Unlock()

	if changed {
		r.notify(pollID, count)
	}
	return count
}

// OnDisconnect removes sessionID from every room it joined and returns those
// poll ids. Callers must not Join with the same session id afterwards.
func (r *Registry) OnDisconnect(sessionID string) []string {
	ss := r.sessionShard(sessionID)
	ss.mu.Lock()
	joined := ss.sessions[sessionID]
	delete(ss.sessions, sessionID)
	ss.mu.Unlock()

	left := make([]string, 0, len(joined))
	for pollID := range joined {
		rs := r.roomShard(pollID)
		rs.mu.Lock()
		if count, changed := r.removeLocked(rs, pollID, sessionID); changed {
			r.notify(pollID, count)
		}
		rs.mu.Unlock()
		left = append(left, pollID)
	}
	sort.Strings(left)
	return left
}

// Count returns the number of sessions in the poll's room.
func (r *Registry) Count(pollID string) int {
	rs := r.roomShard(pollID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.rooms[pollID])
}

// Members returns the session ids in the poll's room, sorted.
func (r *Registry) Members(pollID string) []string {
	rs := r.roomShard(pollID)
	rs.mu.Lock()
	members := make([]string, 0, len(rs.rooms[pollID]))
	for id := range rs.rooms[pollID] {
		members = append(members, id)
	}
	rs.mu.Unlock()

	sort.Strings(members)
	return members
}

// Rooms returns the poll ids sessionID has joined, sorted.
func (r *Registry) Rooms(sessionID string) []string {
	ss := r.sessionShard(sessionID)
	ss.mu.Lock()
	rooms := make([]string, 0, len(ss.sessions[sessionID]))
	for id := range ss.sessions[sessionID] {
		rooms = append(rooms, id)
	}
	ss.mu.Unlock()

	sort.Strings(rooms)
	return rooms
}

func (r *Registry) removeLocked(rs *roomShard, pollID, sessionID string) (int, bool) {
	members, ok := rs.rooms[pollID]
	if !ok {
		return 0, false
	}
	if _, member := members[sessionID]; !member {
		return len(members), false
	}

	delete(members, sessionID)
	metrics.PresenceSessions.Dec()
	if len(members) == 0 {
		delete(rs.rooms, pollID)
		metrics.ActiveRooms.Dec()
	}
	return len(members), true
}

func (r *Registry) notify(pollID string, count int) {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	for _, fn := range r.listeners {
		fn(pollID, count)
	}
}

func (r *Registry) roomShard(pollID string) *roomShard {
	return &r.rooms[shardIndex(pollID)]
}

func (r *Registry) sessionShard(sessionID string) *sessionShard {
	return &r.sessions[shardIndex(sessionID)]
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Lifecycle status values
const (
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusEnded     = "ended"
)

// Push message types
const (
	MessagePollState = "poll-state"
	MessageActivity  = "activity"
	MessagePresence  = "presence"
	MessageError     = "error"
)

// Client frame types
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
)

// Activity categories
const (
	ActivityVote = "vote"
)

// Error codes returned in ErrorResponse.Error
const (
	ErrCodeAlreadyVoted   = "already_voted"
	ErrCodeNotActive      = "not_active"
	ErrCodePollNotFound   = "poll_not_found"
	ErrCodeOptionNotFound = "option_not_found"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeInternal       = "internal_error"
)

// Domain types

type Poll struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Question     string     `json:"question"`
	CreatedAt    time.Time  `json:"createdAt"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type Option struct {
	ID        string `json:"id"`
	PollID    string `json:"pollId"`
	Text      string `json:"text"`
	VoteCount int64  `json:"voteCount"`
	Position  int    `json:"position"`
}

// VoteRecord is one ledger row. At most one exists per (PollID, VoterIdentity).
type VoteRecord struct {
	ID                string    `json:"id"`
	PollID            string    `json:"pollId"`
	OptionID          string    `json:"optionId"`
	VoterIdentity     string    `json:"-"` // Never expose in JSON
	IPFingerprintHash string    `json:"-"` // Informational only
	CreatedAt         time.Time `json:"createdAt"`
}

type ActivityEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Color     string `json:"color"`
}

// Push payloads

type OptionState struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	VoteCount int64  `json:"voteCount"`
	Position  int    `json:"position"`
}

// PollState is the full state pushed on every vote and returned on refresh.
type PollState struct {
	ID            string        `json:"id"`
	Slug          string        `json:"slug"`
	Question      string        `json:"question"`
	Status        string        `json:"status"`
	ScheduledFor  *time.Time    `json:"scheduledFor,omitempty"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	Options       []OptionState `json:"options"`
	TotalVotes    int64         `json:"totalVotes"`
	PresenceCount int           `json:"presenceCount"`
}

type PresenceUpdate struct {
	Count int `json:"count"`
}

// Envelope wraps every server to client push.
type Envelope struct {
	Type   string `json:"type"`
	PollID string `json:"pollId"`
	Data   any    `json:"data"`
}

// ClientFrame is a client to server membership request.
type ClientFrame struct {
	Type   string `json:"type"`
	PollID string `json:"pollId"`
}

// Request types

type CastVoteRequest struct {
	OptionID      string `json:"optionId"`
	VoterIdentity string `json:"voterIdentity"`
}

// Response types

type CastVoteResponse struct {
	OK bool `json:"ok"`
}

type VoteStatusResponse struct {
	HasVoted bool   `json:"hasVoted"`
	OptionID string `json:"optionId,omitempty"`
}

type ReconcileResponse struct {
	PollID    string `json:"pollId"`
	Corrected int64  `json:"corrected"`
}

// Error response

type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	OptionID string `json:"optionId,omitempty"` // set for already_voted
}

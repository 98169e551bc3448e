package model

import (
	"sort"
	"time"
)

type ChannelKind string

const (
	ChannelDirect    ChannelKind = "direct"
	ChannelBroadcast ChannelKind = "broadcast"
)

// DirectChannelID derives the canonical identity of a two-party channel.
// Order-independent: (a,b) and (b,a) map to the same channel.
func DirectChannelID(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return "dm:" + p[0] + ":" + p[1]
}

// BroadcastChannelID is the identity of the per-hospital care-team channel.
func BroadcastChannelID(hospitalID string) string {
	return "care-team:" + hospitalID
}

// Channel is an addressable message stream. NextSeq is the per-channel
// ordering counter; it only advances inside a write transaction.
type Channel struct {
	ID           string      `json:"id"`
	HospitalID   string      `json:"hospital_id"`
	Kind         ChannelKind `json:"kind"`
	Participants []string    `json:"participants,omitempty"`
	NextSeq      uint64      `json:"next_seq"`
	Messages     []*Message  `json:"messages"`
	LastActivity time.Time   `json:"last_activity"`
}

// HasParticipant reports whether userID is one of the two direct-channel
// participants. Broadcast channels have no participant list.
func (c *Channel) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is immutable once created. Ordering within a channel is defined
// by Seq alone, never by timestamps.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

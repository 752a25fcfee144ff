package model

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingChannelID is returned for a status change without a channel.
var ErrMissingChannelID = errors.New("channel id is required")

// timestampLayouts are tried in order when parsing Message.Timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Message is a single author/text/timestamp entry within a channel.
type Message struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Time parses the message timestamp. It reports false when none of the known
// layouts match.
func (m Message) Time() (time.Time, bool) {
	ts := strings.TrimSpace(m.Timestamp)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Channel is a named stream of messages displayed as one card.
type Channel struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	URL      string    `json:"url,omitempty"`
	Ok       bool      `json:"ok,omitempty"`
	Messages []Message `json:"messages"`
}

// ChannelPair splits channels by status. A feed that sends a bare list of
// channels is represented with Flat set and everything in Ok.
type ChannelPair struct {
	Bad  []Channel `json:"Bad"`
	Ok   []Channel `json:"Ok"`
	Flat bool      `json:"-"`
}

// Section is a titled group of channels rendered together.
type Section struct {
	Key      string
	Title    string
	Channels []Channel
}

// Sections returns the groups to render, in display order.
func (p ChannelPair) Sections() []Section {
	if p.Flat {
		return []Section{{Key: "all", Channels: p.Ok}}
	}
	return []Section{
		{Key: "bad", Title: "Needs attention", Channels: p.Bad},
		{Key: "ok", Title: "OK", Channels: p.Ok},
	}
}

// Len returns the total number of channels in the pair.
func (p ChannelPair) Len() int {
	return len(p.Bad) + len(p.Ok)
}

// StatusChange is the payload posted when a channel is marked ok or bad.
type StatusChange struct {
	Ok        bool   `json:"ok"`
	ChannelID string `json:"channelId"`
}

// Validate checks that the status change names a channel.
func (s StatusChange) Validate() error {
	if strings.TrimSpace(s.ChannelID) == "" {
		return ErrMissingChannelID
	}
	return nil
}

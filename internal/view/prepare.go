package view

import (
	"slices"
	"time"

	"github.com/vovakirdan/figaro/internal/model"
)

// prepare filters, trims and orders one section's channels. The input is
// not mutated.
func (r *Renderer) prepare(channels []model.Channel) []model.Channel {
	out := make([]model.Channel, 0, len(channels))
	for _, ch := range channels {
		if r.channelFilter != nil && !r.channelFilter.MatchString(ch.Name) {
			continue
		}
		if r.maxMessages > 0 && len(ch.Messages) > r.maxMessages {
			ch.Messages = latestMessages(ch.Messages, r.maxMessages)
		}
		out = append(out, ch)
	}

	if r.sortByActivity {
		// Partition takes cards from the end, so the most recently active
		// channel sorts last.
		slices.SortStableFunc(out, func(a, b model.Channel) int {
			return lastActivity(a).Compare(lastActivity(b))
		})
	}
	return out
}

// latestMessages returns the n newest messages in their original order.
// Messages without a parseable timestamp count as oldest.
func latestMessages(messages []model.Message, n int) []model.Message {
	idx := make([]int, len(messages))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return messageTime(messages[b]).Compare(messageTime(messages[a]))
	})
	idx = idx[:n]
	slices.Sort(idx)

	out := make([]model.Message, 0, n)
	for _, i := range idx {
		out = append(out, messages[i])
	}
	return out
}

func lastActivity(ch model.Channel) time.Time {
	var last time.Time
	for _, m := range ch.Messages {
		if t := messageTime(m); t.After(last) {
			last = t
		}
	}
	return last
}

func messageTime(m model.Message) time.Time {
	t, ok := m.Time()
	if !ok {
		return time.Time{}
	}
	return t
}

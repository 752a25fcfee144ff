package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/figaro/internal/model"
)

func channelNames(rows [][]model.Channel) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		names := make([]string, 0, len(row))
		for _, ch := range row {
			names = append(names, ch.Name)
		}
		out = append(out, names)
	}
	return out
}

func namedChannels(names ...string) []model.Channel {
	channels := make([]model.Channel, 0, len(names))
	for _, n := range names {
		channels = append(channels, model.Channel{Name: n})
	}
	return channels
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		size  int
		want  [][]string
	}{
		{name: "empty", input: nil, size: 3, want: [][]string{}},
		{name: "short row", input: []string{"a", "b"}, size: 3, want: [][]string{{"b", "a"}}},
		{name: "exact", input: []string{"a", "b", "c"}, size: 3, want: [][]string{{"c", "b", "a"}}},
		{name: "remainder", input: []string{"a", "b", "c", "d", "e"}, size: 3, want: [][]string{{"e", "d", "c"}, {"b", "a"}}},
		{name: "default size", input: []string{"a", "b", "c", "d"}, size: 0, want: [][]string{{"d", "c", "b"}, {"a"}}},
		{name: "pairs", input: []string{"a", "b", "c"}, size: 2, want: [][]string{{"c", "b"}, {"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := namedChannels(tt.input...)
			got := channelNames(Partition(input, tt.size))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, namedChannels(tt.input...), input, "input must not be mutated")
		})
	}
}

func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := New(append([]Option{WithClock(func() time.Time { return now })}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestFrameRendersCards(t *testing.T) {
	r := newTestRenderer(t)

	pair := model.ChannelPair{Flat: true, Ok: []model.Channel{
		{Name: "#first", Messages: []model.Message{{Author: "alice", Text: "hello", Timestamp: "2024-05-01T11:57:00Z"}}},
		{Name: "#second"},
		{Name: "#third"},
		{Name: "#fourth", Messages: []model.Message{{Author: "bob", Text: "later", Timestamp: "not a date"}}},
	}}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	assert.Equal(t, 2, strings.Count(out, `<div class="row">`))
	assert.Equal(t, 4, strings.Count(out, `<div class="panel-heading">`))
	assert.Contains(t, out, `alice <time datetime="2024-05-01T11:57:00Z" title="2024-05-01T11:57:00Z">3 minutes ago</time>`)
	assert.Contains(t, out, `<a href="#" class="list-group-item">hello</a>`)
	assert.Contains(t, out, `bob <time>not a date</time>`)
	assert.Less(t, strings.Index(out, "#fourth"), strings.Index(out, "#first"), "last channel is rendered first")
	assert.NotContains(t, out, "status-buttons", "channels without id have no buttons")
}

func TestFrameEscapesContent(t *testing.T) {
	r := newTestRenderer(t)

	pair := model.ChannelPair{Flat: true, Ok: []model.Channel{{
		ID:       `C"1`,
		Name:     "<b>bold</b>",
		Messages: []model.Message{{Author: "eve", Text: `<script>alert(1)</script>`}},
	}}}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `data-channel="C&#34;1"`)
}

func TestFramePairSections(t *testing.T) {
	r := newTestRenderer(t)

	pair := model.ChannelPair{
		Bad: []model.Channel{{ID: "B1", Name: "#broken"}},
		Ok:  []model.Channel{{ID: "O1", Name: "#fine", Ok: true}},
	}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	bad := strings.Index(out, `channels-bad`)
	ok := strings.Index(out, `channels-ok`)
	require.NotEqual(t, -1, bad)
	require.NotEqual(t, -1, ok)
	assert.Less(t, bad, ok)
	assert.Contains(t, out, "Needs attention")
	assert.Contains(t, out, `data-channel="B1" data-ok="false"`)
	assert.Contains(t, out, "panel-ok")
}

func TestFrameTruncatesText(t *testing.T) {
	r := newTestRenderer(t, WithMaxTextChars(5))

	pair := model.ChannelPair{Flat: true, Ok: []model.Channel{{
		Name:     "#long",
		Messages: []model.Message{{Author: "a", Text: "héllo world"}},
	}}}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	assert.Contains(t, string(html), ">héllo…</a>")
}

func TestFrameEmpty(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Frame(model.ChannelPair{Flat: true})
	require.NoError(t, err)
	assert.NotContains(t, string(html), `class="row"`)
}

func TestPage(t *testing.T) {
	r := newTestRenderer(t)

	frame, err := r.Frame(model.ChannelPair{Flat: true, Ok: []model.Channel{{Name: "#general"}}})
	require.NoError(t, err)

	page, err := r.Page(PageData{Frame: frame, WSPath: "/ws", StatusPath: "/api/status"})
	require.NoError(t, err)
	out := string(page)

	assert.Contains(t, out, "<title>Figaro</title>")
	assert.Contains(t, out, `<div class="panel-heading">#general`)
	assert.Contains(t, out, `var wsPath = "/ws";`)
	assert.Contains(t, out, `var statusPath = "/api/status";`)

	// A pushed frame clears an earlier feed error from the status line.
	frameBranch := out[strings.Index(out, `if (msg.type === "frame")`):]
	frameBranch = frameBranch[:strings.Index(frameBranch, "} else if")]
	assert.Contains(t, frameBranch, `state.textContent = "live";`)
}

func TestFrameKeepsLatestMessages(t *testing.T) {
	r := newTestRenderer(t, WithMaxMessages(2))

	pair := model.ChannelPair{Flat: true, Ok: []model.Channel{{
		Name: "#busy",
		Messages: []model.Message{
			{Author: "a", Text: "ten", Timestamp: "2024-05-01T10:00:00Z"},
			{Author: "b", Text: "eleven", Timestamp: "2024-05-01T11:00:00Z"},
			{Author: "c", Text: "nine", Timestamp: "2024-05-01T09:00:00Z"},
		},
	}}}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, ">ten</a>")
	assert.Contains(t, out, ">eleven</a>")
	assert.NotContains(t, out, ">nine</a>")
	assert.Less(t, strings.Index(out, ">ten</a>"), strings.Index(out, ">eleven</a>"), "feed order is kept")
	assert.Len(t, pair.Ok[0].Messages, 3, "input must not be mutated")
}

func TestFrameChannelPattern(t *testing.T) {
	r := newTestRenderer(t, WithChannelPattern(`^#ops-`))

	pair := model.ChannelPair{
		Bad: namedChannels("#ops-db", "#random"),
		Ok:  namedChannels("#ops-web", "#general"),
	}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "#ops-db")
	assert.Contains(t, out, "#ops-web")
	assert.NotContains(t, out, "#random")
	assert.NotContains(t, out, "#general")
}

func TestNewRejectsBadChannelPattern(t *testing.T) {
	_, err := New(WithChannelPattern("(["))
	assert.Error(t, err)
}

func TestFrameSortByActivity(t *testing.T) {
	r := newTestRenderer(t, WithSortByActivity(true))

	at := func(name, ts string) model.Channel {
		return model.Channel{Name: name, Messages: []model.Message{{Author: "x", Text: "t", Timestamp: ts}}}
	}
	pair := model.ChannelPair{Flat: true, Ok: []model.Channel{
		at("#old", "2024-05-01T08:00:00Z"),
		at("#newest", "2024-05-01T11:00:00Z"),
		at("#middle", "2024-05-01T10:00:00Z"),
		{Name: "#silent"},
	}}

	html, err := r.Frame(pair)
	require.NoError(t, err)
	out := string(html)

	newest := strings.Index(out, "#newest")
	middle := strings.Index(out, "#middle")
	old := strings.Index(out, "#old")
	silent := strings.Index(out, "#silent")
	require.NotEqual(t, -1, silent)
	assert.Less(t, newest, middle)
	assert.Less(t, middle, old)
	assert.Less(t, old, silent)
	assert.Equal(t, "#old", pair.Ok[0].Name, "input must not be reordered")
}

package devserver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Pallinder/go-randomdata"

	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/store"
)

// messageWindow bounds how far back generated messages are dated.
const messageWindow = 48 * time.Hour

// GeneratorOptions sizes the generated frames.
type GeneratorOptions struct {
	OkChannels  int
	BadChannels int
	Messages    int
	MaxText     int
}

// Generator produces random channel pairs over a fixed set of channels.
// Channel identities stay the same between frames so that a stored status
// moves a channel from one side of the pair to the other.
type Generator struct {
	opts     GeneratorOptions
	channels []model.Channel
	statuses store.StatusStore
	now      func() time.Time
}

// NewGenerator creates the channel set. statuses may be nil.
func NewGenerator(opts GeneratorOptions, statuses store.StatusStore) *Generator {
	if opts.OkChannels < 0 {
		opts.OkChannels = 0
	}
	if opts.BadChannels < 0 {
		opts.BadChannels = 0
	}
	if opts.Messages < 0 {
		opts.Messages = 0
	}
	if opts.MaxText <= 0 {
		opts.MaxText = 1
	}

	total := opts.BadChannels + opts.OkChannels
	channels := make([]model.Channel, total)
	for i := range channels {
		id := fmt.Sprintf("C%03d", i+1)
		channels[i] = model.Channel{
			ID:   id,
			Name: "#" + strings.ToLower(strings.ReplaceAll(randomdata.Country(randomdata.FullCountry), " ", "-")),
			URL:  "https://chat.example.com/channels/" + id,
			Ok:   i >= opts.BadChannels,
		}
	}

	return &Generator{
		opts:     opts,
		channels: channels,
		statuses: statuses,
		now:      time.Now,
	}
}

// Channels returns the fixed channel identities.
func (g *Generator) Channels() []model.Channel {
	out := make([]model.Channel, len(g.channels))
	copy(out, g.channels)
	return out
}

// Generate builds a fresh pair with new messages. A stored status overrides
// the channel's initial side.
func (g *Generator) Generate(ctx context.Context) (model.ChannelPair, error) {
	overrides := make(map[string]bool)
	if g.statuses != nil {
		stored, err := g.statuses.ListStatuses(ctx)
		if err != nil {
			return model.ChannelPair{}, fmt.Errorf("list statuses: %w", err)
		}
		for _, s := range stored {
			overrides[s.ChannelID] = s.Ok
		}
	}

	pair := model.ChannelPair{
		Bad: []model.Channel{},
		Ok:  []model.Channel{},
	}
	for _, base := range g.channels {
		ch := base
		if ok, found := overrides[ch.ID]; found {
			ch.Ok = ok
		}
		ch.Messages = make([]model.Message, g.opts.Messages)
		for i := range ch.Messages {
			ch.Messages[i] = g.message()
		}
		if ch.Ok {
			pair.Ok = append(pair.Ok, ch)
		} else {
			pair.Bad = append(pair.Bad, ch)
		}
	}
	return pair, nil
}

func (g *Generator) message() model.Message {
	age := time.Duration(rand.Int64N(int64(messageWindow)))
	return model.Message{
		Author:    "@" + strings.ToLower(randomdata.SillyName()),
		Text:      g.text(),
		Timestamp: g.now().Add(-age).UTC().Format(time.RFC3339),
	}
}

func (g *Generator) text() string {
	length := 1 + rand.IntN(g.opts.MaxText)
	var b strings.Builder
	for b.Len() < length {
		b.WriteString(randomdata.Paragraph())
	}
	return b.String()[:length]
}

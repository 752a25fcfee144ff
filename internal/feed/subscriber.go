package feed

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/metrics"
	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/proto"
	"github.com/vovakirdan/figaro/internal/store"
)

// Renderer turns a decoded payload into markup.
type Renderer interface {
	Frame(pair model.ChannelPair) (template.HTML, error)
}

// Publisher receives rendered frames and feed alerts.
type Publisher interface {
	Publish(ctx context.Context, frame core.Frame) error
	Alert(ctx context.Context, err *core.CoreError) error
}

// Options configures a Subscriber.
type Options struct {
	URL            string
	RedialInterval time.Duration
	MaxFrameBytes  int64
	Snapshots      store.SnapshotStore
	Metrics        metrics.Collector
}

// Subscriber keeps a connection to the upstream feed and turns every
// inbound message into a published frame.
type Subscriber struct {
	url       string
	redial    time.Duration
	readLimit int64
	renderer  Renderer
	pub       Publisher
	snapshots store.SnapshotStore
	metrics   metrics.Collector
	log       *zerolog.Logger
	now       func() time.Time
}

// NewSubscriber builds a feed subscriber.
func NewSubscriber(opts Options, renderer Renderer, pub Publisher, logger *zerolog.Logger) *Subscriber {
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Nop()
	}
	return &Subscriber{
		url:       opts.URL,
		redial:    opts.RedialInterval,
		readLimit: opts.MaxFrameBytes,
		renderer:  renderer,
		pub:       pub,
		snapshots: opts.Snapshots,
		metrics:   collector,
		log:       logger,
		now:       time.Now,
	}
}

// Run restores the last snapshot, then reads the feed until ctx is
// cancelled. A dropped connection is redialed after the configured interval;
// with a zero interval the first failure is returned.
func (s *Subscriber) Run(ctx context.Context) error {
	s.restore(ctx)

	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if s.redial <= 0 {
			return err
		}

		s.log.Warn().Err(err).Str("url", s.url).Dur("redial_in", s.redial).Msg("feed connection lost")
		if alertErr := s.pub.Alert(ctx, core.NewError(core.ErrCodeUpstreamDown, "live feed unavailable, reconnecting")); alertErr != nil && ctx.Err() == nil {
			s.log.Debug().Err(alertErr).Msg("failed to alert browsers")
		}

		timer := time.NewTimer(s.redial)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session handles a single connection. Messages are processed one at a time.
func (s *Subscriber) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.CloseNow()

	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}
	s.log.Info().Str("url", s.url).Msg("feed connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return errors.New("feed closed by server")
			}
			return fmt.Errorf("read feed: %w", err)
		}

		if err := s.Handle(ctx, data); err != nil {
			if errors.Is(err, core.ErrHubStopped) || ctx.Err() != nil {
				return err
			}
			s.log.Warn().Err(err).Int("bytes", len(data)).Msg("skipping feed frame")
		}
	}
}

// Handle decodes one payload, renders it, publishes the frame and stores
// the payload as the latest snapshot.
func (s *Subscriber) Handle(ctx context.Context, data []byte) error {
	s.metrics.IncFramesReceived()
	receivedAt := s.now()

	if err := s.publish(ctx, data, receivedAt); err != nil {
		return err
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, data, receivedAt); err != nil {
			s.log.Warn().Err(err).Msg("failed to save snapshot")
		}
	}
	return nil
}

func (s *Subscriber) publish(ctx context.Context, data []byte, receivedAt time.Time) error {
	pair, err := proto.DecodeFrame(data)
	if err != nil {
		s.metrics.IncDecodeErrors()
		return err
	}

	html, err := s.renderer.Frame(pair)
	if err != nil {
		s.metrics.IncDecodeErrors()
		return err
	}

	s.log.Debug().Int("channels", pair.Len()).Msg("frame rendered")
	return s.pub.Publish(ctx, core.Frame{
		HTML:       string(html),
		Channels:   pair.Len(),
		ReceivedAt: receivedAt,
	})
}

func (s *Subscriber) restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snap, err := s.snapshots.LatestSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Msg("failed to load snapshot")
		}
		return
	}
	if err := s.publish(ctx, snap.Payload, snap.ReceivedAt); err != nil {
		s.log.Warn().Err(err).Msg("failed to restore snapshot")
		return
	}
	s.log.Info().Time("received_at", snap.ReceivedAt).Msg("restored last frame")
}

package indexer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Sarojini27-bose/memeverse/explore/adapters/events"
	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const (
	defaultDebounce = 10 * time.Second
)

// EventIndexer rebuilds the leaderboard after like events, at most once
// per debounce interval.
type EventIndexer struct {
	log      *slog.Logger
	svc      core.LeaderboardBuilder
	nc       *nats.Conn
	debounce time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	pending atomic.Bool
}

func NewEventIndexer(log *slog.Logger, svc core.LeaderboardBuilder, nc *nats.Conn, debounce time.Duration) *EventIndexer {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &EventIndexer{
		log:      log,
		svc:      svc,
		nc:       nc,
		debounce: debounce,
	}
}

func (i *EventIndexer) Start(ctx context.Context) error {
	if i.svc == nil || i.nc == nil {
		return core.ErrNilDependency
	}

	ch := make(chan *nats.Msg, 16)
	sub, err := i.nc.ChanSubscribe(events.SubjectLiked, ch)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.done = make(chan struct{})

	go func() {
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				i.log.Error("failed to unsubscribe from nats", "error", err)
			}
			i.log.Info("event indexer stopped")
			close(i.done)
		}()

		ticker := time.NewTicker(i.debounce)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				if i.pending.Swap(false) {
					i.log.Info("rebuilding leaderboard after like events")
					if err := i.svc.RebuildLeaderboard(ctx); err != nil {
						i.log.Error("leaderboard rebuild failed", "error", err)
					}
				}

			case <-ch:
				i.pending.Store(true)
			}
		}
	}()

	return nil
}

func (i *EventIndexer) Stop() {
	if i.cancel != nil {
		i.cancel()
		<-i.done
	}
}

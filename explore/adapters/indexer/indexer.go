package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

// Indexer rebuilds the leaderboard once on start and then every ttl.
type Indexer struct {
	log    *slog.Logger
	svc    core.LeaderboardBuilder
	ttl    time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *slog.Logger, svc core.LeaderboardBuilder, ttl time.Duration) *Indexer {
	return &Indexer{
		log: log,
		svc: svc,
		ttl: ttl,
	}
}

func (i *Indexer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.done = make(chan struct{})

	go func() {
		defer close(i.done)
		if err := i.svc.RebuildLeaderboard(ctx); err != nil {
			i.log.Error("initial leaderboard rebuild failed", "error", err)
		}
		ticker := time.NewTicker(i.ttl)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				i.log.Info("leaderboard indexer stopped")
				return
			case <-ticker.C:
				if err := i.svc.RebuildLeaderboard(ctx); err != nil {
					i.log.Error("leaderboard rebuild failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (i *Indexer) Stop() {
	if i.cancel != nil {
		i.cancel()
		<-i.done
	}
}

package core

import (
	"context"
	"time"
)

type Catalog interface {
	Memes(ctx context.Context) ([]CatalogEntry, error)
}

// Store persists JSON snapshots under structured keys. Get returns
// ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Remove(ctx context.Context, key Key) error
}

type Events interface {
	PublishLiked(memeID string, likes int)
	PublishCommented(memeID string, comments int)
	PublishUploaded(memeID string)
}

type Captioner interface {
	Caption(ctx context.Context) (string, error)
}

type Words interface {
	Norm(phrase string) []string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// LeaderboardBuilder recomputes the cached leaderboard.
type LeaderboardBuilder interface {
	RebuildLeaderboard(ctx context.Context) error
}

// Sweeper expires idle view sessions.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Explorer interface {
	LeaderboardBuilder

	OpenSession(ctx context.Context, opts SessionOptions) (*Session, error)
	Session(id string) (*Session, error)
	CloseSession(id string) error
	Detail(ctx context.Context, memeID, sessionID string) (Detail, error)
	Like(ctx context.Context, memeID, user string) (int, error)
	Comment(ctx context.Context, memeID, text string) ([]string, error)
	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
	Caption(ctx context.Context) string
	Stats(ctx context.Context) ServiceStats
}

type Profiles interface {
	Profile(ctx context.Context, user string) (Profile, error)
	SaveProfile(ctx context.Context, user string, p Profile) error
	Uploads(ctx context.Context, user string) ([]Upload, error)
	Upload(ctx context.Context, user string, req UploadRequest) (Upload, error)
	LikedMemes(ctx context.Context, user string) ([]Meme, error)
}

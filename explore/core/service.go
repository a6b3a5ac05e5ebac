package core

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	leaderboardSize    = 10
	maxLikes           = 1000
	maxComments        = 100
	maxTextLen         = 4096
	fallbackCaption    = "When you want to code, but the memes keep calling 😹"
	sampleMemeImageURL = "https://i.imgflip.com/1bij.jpg"
)

type Options struct {
	PageSize   int
	SessionTTL time.Duration
	// Seed drives the placeholder counters and the per-session shuffles.
	// Zero picks a random seed.
	Seed  uint64
	Now   func() time.Time
	NewID func() string
}

type Service struct {
	log       *slog.Logger
	catalog   Catalog
	store     Store
	words     Words
	events    Events
	captioner Captioner
	opts      Options

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*Session

	keys keyLocks

	boardMu sync.RWMutex
	board   []LeaderboardEntry
	boardAt time.Time
}

// NewService wires the explore service. events and captioner are optional.
func NewService(
	log *slog.Logger, catalog Catalog, store Store, words Words, events Events, captioner Captioner, opts Options,
) (*Service, error) {
	if log == nil || catalog == nil || store == nil || words == nil {
		return nil, ErrNilDependency
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Service{
		log:       log,
		catalog:   catalog,
		store:     store,
		words:     words,
		events:    events,
		captioner: captioner,
		opts:      opts,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sessions:  make(map[string]*Session),
	}, nil
}

// OpenSession fetches the catalog once and starts a new view over it.
// A failed fetch is logged and leaves the session with an empty catalog.
func (s *Service) OpenSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.PageSize < 1 {
		opts.PageSize = s.opts.PageSize
	}
	memes, err := s.fetchMemes(ctx)
	if err != nil {
		s.log.Warn("catalog fetch failed", "error", err)
		memes = []Meme{}
	}

	s.rndMu.Lock()
	sessionRnd := rand.New(rand.NewPCG(s.rnd.Uint64(), s.rnd.Uint64()))
	s.rndMu.Unlock()

	sess := newSession(s.opts.NewID(), memes, opts, sessionRnd, s.opts.Now)

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	s.log.Debug("session opened", "session", sess.ID(), "memes", len(memes))
	return sess, nil
}

func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.Close()
	s.log.Debug("session closed", "session", id)
	return nil
}

// Sweep closes the sessions idle for longer than the session TTL.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.opts.SessionTTL {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		s.log.Info("expired sessions swept", "count", len(expired))
	}
	return len(expired)
}

func (s *Service) Stats(context.Context) ServiceStats {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()

	s.boardMu.RLock()
	at := s.boardAt
	s.boardMu.RUnlock()

	return ServiceStats{Sessions: n, Leaderboard: at}
}

func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	s.boardMu.RLock()
	built := !s.boardAt.IsZero()
	board := slices.Clone(s.board)
	s.boardMu.RUnlock()
	if built {
		return board, nil
	}

	if err := s.RebuildLeaderboard(ctx); err != nil {
		return nil, err
	}
	s.boardMu.RLock()
	defer s.boardMu.RUnlock()
	return slices.Clone(s.board), nil
}

// RebuildLeaderboard ranks a fresh catalog by likes, preferring the like
// counts stored for memes that were liked.
func (s *Service) RebuildLeaderboard(ctx context.Context) error {
	memes, err := s.fetchMemes(ctx)
	if err != nil {
		return err
	}
	for i := range memes {
		if likes, ok := s.storedLikes(ctx, memes[i].ID); ok {
			memes[i].Likes = likes
		}
	}
	top := Sort(memes, SortLikes)
	top = top[:min(len(top), leaderboardSize)]

	board := make([]LeaderboardEntry, 0, len(top))
	for i, m := range top {
		board = append(board, LeaderboardEntry{Rank: i + 1, Meme: m})
	}

	s.boardMu.Lock()
	s.board = board
	s.boardAt = s.opts.Now()
	s.boardMu.Unlock()

	s.log.Info("leaderboard rebuilt", "entries", len(board))
	return nil
}

func (s *Service) Caption(ctx context.Context) string {
	if s.captioner == nil {
		return fallbackCaption
	}
	caption, err := s.captioner.Caption(ctx)
	if err != nil || caption == "" {
		s.log.Warn("caption generation failed, using fallback", "error", err)
		return fallbackCaption
	}
	return caption
}

func (s *Service) fetchMemes(ctx context.Context) ([]Meme, error) {
	entries, err := s.catalog.Memes(ctx)
	if err != nil {
		return nil, err
	}

	s.rndMu.Lock()
	defer s.rndMu.Unlock()

	memes := make([]Meme, 0, len(entries))
	for _, e := range entries {
		memes = append(memes, Meme{
			ID:       e.ID,
			Name:     e.Name,
			URL:      e.URL,
			Likes:    s.rnd.IntN(maxLikes),
			Comments: s.rnd.IntN(maxComments),
		})
	}
	return memes, nil
}

package core

import (
	"math/rand/v2"
	"sync"
	"time"
)

type SessionOptions struct {
	Query    string
	Category Category
	SortKey  SortKey
	PageSize int
}

// Session is one activation of the explore view. It owns the catalog
// snapshot fetched when it was opened and the view state the consumer
// mutates.
type Session struct {
	id      string
	catalog []Meme

	mu       sync.Mutex
	state    ViewState
	pending  bool
	closed   bool
	lastSeen time.Time
	rnd      *rand.Rand
	now      func() time.Time
}

func newSession(id string, catalog []Meme, opts SessionOptions, rnd *rand.Rand, now func() time.Time) *Session {
	if opts.Category == "" {
		opts.Category = CategoryTrending
	}
	if opts.SortKey == "" {
		opts.SortKey = SortNone
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	return &Session{
		id:      id,
		catalog: catalog,
		state: ViewState{
			Query:     opts.Query,
			Category:  opts.Category,
			SortKey:   opts.SortKey,
			PageSize:  opts.PageSize,
			PageCount: 1,
		},
		lastSeen: now(),
		rnd:      rnd,
		now:      now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) CatalogSize() int { return len(s.catalog) }

func (s *Session) lookup(memeID string) (Meme, bool) {
	for _, m := range s.catalog {
		if m.ID == memeID {
			return m, true
		}
	}
	return Meme{}, false
}

func (s *Session) SetQuery(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return err
	}
	if s.state.Query != query {
		s.state.Query = query
		s.resetPages()
	}
	return nil
}

func (s *Session) SetCategory(category Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return err
	}
	if s.state.Category != category {
		s.state.Category = category
		s.resetPages()
	}
	return nil
}

// SetSort changes the sort key. The page count is kept.
func (s *Session) SetSort(key SortKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return err
	}
	s.state.SortKey = key
	return nil
}

// RequestNextPage reveals one more page when the end of the rendered list
// was reached and more memes remain. seen is the page count the consumer
// rendered last, zero when unknown; a stale value is ignored. At most one
// increment is pending until the next Window call.
func (s *Session) RequestNextPage(seen int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return false, err
	}
	if s.pending {
		return false, nil
	}
	if seen != 0 && seen != s.state.PageCount {
		return false, nil
	}
	if s.state.PageCount*s.state.PageSize >= s.totalLocked() {
		return false, nil
	}
	s.state.PageCount++
	s.pending = true
	return true, nil
}

// Window recomputes the rendered page. Random reshuffles on every call.
func (s *Session) Window() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return Page{}, err
	}
	s.pending = false
	return Process(s.catalog, s.state, s.shuffle), nil
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) idleSince(t time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.Sub(s.lastSeen)
}

func (s *Session) touch() error {
	if s.closed {
		return ErrNotFound
	}
	s.lastSeen = s.now()
	return nil
}

func (s *Session) resetPages() {
	s.state.PageCount = 1
	s.pending = false
}

// totalLocked is the processed length, which does not depend on the
// shuffle order.
func (s *Session) totalLocked() int {
	filtered := Filter(s.catalog, s.state.Query)
	switch s.state.Category {
	case CategoryNew, CategoryClassic:
		return min(len(filtered), categoryWindow)
	default:
		return len(filtered)
	}
}

func (s *Session) shuffle(memes []Meme) {
	s.rnd.Shuffle(len(memes), func(i, j int) { memes[i], memes[j] = memes[j], memes[i] })
}

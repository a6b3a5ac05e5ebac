package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu      sync.Mutex
	entries []CatalogEntry
	err     error
	calls   int
}

func (c *fakeCatalog) Memes(context.Context) ([]CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.entries, nil
}

type mapStore struct {
	mu   sync.Mutex
	data map[Key][]byte
}

func newMapStore() *mapStore { return &mapStore{data: make(map[Key][]byte)} }

func (s *mapStore) Get(_ context.Context, key Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Remove(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type fieldsWords struct{}

func (fieldsWords) Norm(phrase string) []string { return strings.Fields(strings.ToLower(phrase)) }

type recordedEvents struct {
	mu       sync.Mutex
	liked    map[string]int
	comments map[string]int
	uploads  []string
}

func (e *recordedEvents) PublishLiked(id string, likes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.liked == nil {
		e.liked = map[string]int{}
	}
	e.liked[id] = likes
}

func (e *recordedEvents) PublishCommented(id string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.comments == nil {
		e.comments = map[string]int{}
	}
	e.comments[id] = n
}

func (e *recordedEvents) PublishUploaded(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploads = append(e.uploads, id)
}

type stubCaptioner struct {
	caption string
	err     error
}

func (c stubCaptioner) Caption(context.Context) (string, error) { return c.caption, c.err }

func entries(n int) []CatalogEntry {
	out := make([]CatalogEntry, 0, n)
	for i := range n {
		out = append(out, CatalogEntry{
			ID:   fmt.Sprintf("%d", 100+i),
			Name: fmt.Sprintf("Meme %d", i),
			URL:  fmt.Sprintf("https://i.imgflip.com/%d.jpg", i),
		})
	}
	return out
}

type fixture struct {
	svc     *Service
	catalog *fakeCatalog
	store   *mapStore
	events  *recordedEvents
	now     time.Time
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &fakeCatalog{entries: entries(n)},
		store:   newMapStore(),
		events:  &recordedEvents{},
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ids := 0
	svc, err := NewService(log, f.catalog, f.store, fieldsWords{}, f.events, nil, Options{
		Seed: 42,
		Now:  func() time.Time { return f.now },
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewService_NilDependency(t *testing.T) {
	_, err := NewService(nil, &fakeCatalog{}, newMapStore(), fieldsWords{}, nil, nil, Options{})
	require.ErrorIs(t, err, ErrNilDependency)
}

func TestOpenSession_AugmentsCatalog(t *testing.T) {
	f := newFixture(t, 30)
	sess, err := f.svc.OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)
	require.Equal(t, 30, sess.CatalogSize())

	page, err := sess.Window()
	require.NoError(t, err)
	require.Len(t, page.Memes, DefaultPageSize)
	for _, m := range page.Memes {
		require.GreaterOrEqual(t, m.Likes, 0)
		require.Less(t, m.Likes, maxLikes)
		require.GreaterOrEqual(t, m.Comments, 0)
		require.Less(t, m.Comments, maxComments)
	}

	got, err := f.svc.Session(sess.ID())
	require.NoError(t, err)
	require.Same(t, sess, got)
}

func TestOpenSession_FetchFailureLeavesEmptyCatalog(t *testing.T) {
	f := newFixture(t, 0)
	f.catalog.err = errors.New("upstream down")

	sess, err := f.svc.OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)
	page, err := sess.Window()
	require.NoError(t, err)
	require.Empty(t, page.Memes)
	require.Equal(t, 1, f.catalog.calls, "no retry")
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t, 5)
	sess, err := f.svc.OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseSession(sess.ID()))
	_, err = f.svc.Session(sess.ID())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = sess.Window()
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.svc.CloseSession(sess.ID()), ErrNotFound)
}

func TestSweep_ExpiresIdleSessions(t *testing.T) {
	f := newFixture(t, 5)
	old, err := f.svc.OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)

	f.now = f.now.Add(20 * time.Minute)
	fresh, err := f.svc.OpenSession(context.Background(), SessionOptions{})
	require.NoError(t, err)

	require.Zero(t, f.svc.Sweep(f.now))
	require.Equal(t, 1, f.svc.Sweep(f.now.Add(15*time.Minute)))

	_, err = f.svc.Session(old.ID())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Session(fresh.ID())
	require.NoError(t, err)
	require.Equal(t, 1, f.svc.Stats(context.Background()).Sessions)
}

func TestDetail_SampleFallback(t *testing.T) {
	f := newFixture(t, 0)
	d, err := f.svc.Detail(context.Background(), "61579", "")
	require.NoError(t, err)
	require.True(t, d.Sample)
	require.Equal(t, "Sample Meme #61579", d.Meme.Name)
	require.Equal(t, sampleMemeImageURL, d.Meme.URL)
	require.Zero(t, d.Likes)
	require.Empty(t, d.Comments)
}

func TestDetail_RemembersSessionSnapshot(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	sess, err := f.svc.OpenSession(ctx, SessionOptions{})
	require.NoError(t, err)
	m, ok := sess.lookup("102")
	require.True(t, ok)

	d, err := f.svc.Detail(ctx, "102", sess.ID())
	require.NoError(t, err)
	require.False(t, d.Sample)
	require.Equal(t, "Meme 2", d.Meme.Name)
	require.Equal(t, m.Likes, d.Likes)
	// a numeric comment count in the snapshot shows as a single entry
	require.Equal(t, []string{fmt.Sprint(m.Comments)}, d.Comments)

	_, err = f.store.Get(ctx, DetailsKey("102"))
	require.NoError(t, err)

}

func TestDetail_UnknownSessionStillRenders(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	d, err := f.svc.Detail(ctx, "102", "expired")
	require.NoError(t, err)
	require.True(t, d.Sample)
	require.Equal(t, "Sample Meme #102", d.Meme.Name)

	_, err = f.store.Get(ctx, DetailsKey("102"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDetail_MalformedSnapshotFallsBack(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, DetailsKey("9"), []byte("{not json")))
	require.NoError(t, f.store.Set(ctx, LikesKey("9"), []byte("abc")))
	require.NoError(t, f.store.Set(ctx, CommentsKey("9"), []byte("[broken")))

	d, err := f.svc.Detail(ctx, "9", "")
	require.NoError(t, err)
	require.True(t, d.Sample)
	require.Zero(t, d.Likes)
	require.Empty(t, d.Comments)
}

func TestDetail_StoredOverridesSnapshot(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, DetailsKey("9"),
		[]byte(`{"id":"9","name":"Two Buttons","url":"u","likes":10,"comments":["hi"]}`)))

	d, err := f.svc.Detail(ctx, "9", "")
	require.NoError(t, err)
	require.Equal(t, 10, d.Likes)
	require.Equal(t, []string{"hi"}, d.Comments)

	require.NoError(t, f.store.Set(ctx, LikesKey("9"), []byte("12")))
	require.NoError(t, f.store.Set(ctx, CommentsKey("9"), []byte(`"lonely"`)))
	d, err = f.svc.Detail(ctx, "9", "")
	require.NoError(t, err)
	require.Equal(t, 12, d.Likes)
	require.Equal(t, []string{"lonely"}, d.Comments)
	require.Equal(t, "Two Buttons", d.Meme.Name)
}

func TestLike_IncrementsAndPublishes(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	likes, err := f.svc.Like(ctx, "7", "")
	require.NoError(t, err)
	require.Equal(t, 1, likes)
	likes, err = f.svc.Like(ctx, "7", "admin")
	require.NoError(t, err)
	require.Equal(t, 2, likes)

	raw, err := f.store.Get(ctx, LikesKey("7"))
	require.NoError(t, err)
	require.Equal(t, "2", string(raw))
	require.Equal(t, 2, f.events.liked["7"])

	liked, err := f.svc.LikedMemes(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, liked, 1)
	require.Equal(t, "7", liked[0].ID)
	require.Equal(t, 2, liked[0].Likes)
}

func TestComment_AppendsTrimmed(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.Comment(ctx, "7", "   ")
	require.ErrorIs(t, err, ErrBadArguments)
	_, err = f.svc.Comment(ctx, "7", strings.Repeat("a", maxTextLen+1))
	require.ErrorIs(t, err, ErrRequestTooLarge)

	comments, err := f.svc.Comment(ctx, "7", "  first ")
	require.NoError(t, err)
	require.Equal(t, []string{"first"}, comments)
	comments, err = f.svc.Comment(ctx, "7", "second")
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, comments)

	raw, err := f.store.Get(ctx, CommentsKey("7"))
	require.NoError(t, err)
	require.JSONEq(t, `["first","second"]`, string(raw))
	require.Equal(t, 2, f.events.comments["7"])
}

func TestLeaderboard_TopTenWithStoredLikes(t *testing.T) {
	f := newFixture(t, 25)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, LikesKey("113"), []byte("5000")))

	board, err := f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, leaderboardSize)
	require.Equal(t, "113", board[0].Meme.ID)
	require.Equal(t, 5000, board[0].Meme.Likes)
	for i, e := range board {
		require.Equal(t, i+1, e.Rank)
		if i > 0 {
			require.GreaterOrEqual(t, board[i-1].Meme.Likes, e.Meme.Likes)
		}
	}

	// cached until rebuilt
	calls := f.catalog.calls
	_, err = f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Equal(t, calls, f.catalog.calls)
	require.Equal(t, f.now, f.svc.Stats(ctx).Leaderboard)
}

func TestLeaderboard_FetchError(t *testing.T) {
	f := newFixture(t, 0)
	f.catalog.err = errors.New("boom")
	_, err := f.svc.Leaderboard(context.Background())
	require.Error(t, err)
}

func TestProfile_DefaultAndSave(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	p, err := f.svc.Profile(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, defaultProfile, p)

	require.ErrorIs(t, f.svc.SaveProfile(ctx, "admin", Profile{}), ErrBadArguments)
	require.NoError(t, f.svc.SaveProfile(ctx, "admin", Profile{Name: "Dank", Bio: "memes"}))
	p, err = f.svc.Profile(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, Profile{Name: "Dank", Bio: "memes", Picture: "/default-profile.jpg"}, p)

	require.NoError(t, f.store.Set(ctx, Key{Kind: KindProfile, ID: "admin"}, []byte("nope")))
	p, err = f.svc.Profile(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, defaultProfile, p)
}

func TestUploads_SamplesThenStored(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	ups, err := f.svc.Uploads(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, ups, 2)
	require.Equal(t, "Uploaded Meme 1", ups[0].Name)

	_, err = f.svc.Upload(ctx, "admin", UploadRequest{})
	require.ErrorIs(t, err, ErrBadArguments)

	up, err := f.svc.Upload(ctx, "admin", UploadRequest{URL: "https://i.example.com/x.png", Caption: "Cats Rule"})
	require.NoError(t, err)
	require.Equal(t, "id-1", up.ID)
	require.Equal(t, "Cats Rule", up.Name)
	require.Equal(t, []string{"cats", "rule"}, up.Tags)
	require.Equal(t, f.now, up.CreatedAt)
	require.Equal(t, []string{"id-1"}, f.events.uploads)

	ups, err = f.svc.Uploads(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, ups, 1)
	require.Equal(t, "id-1", ups[0].ID)
}

func TestLikedMemes_Samples(t *testing.T) {
	f := newFixture(t, 0)
	liked, err := f.svc.LikedMemes(context.Background(), "admin")
	require.NoError(t, err)
	require.Len(t, liked, 2)
	require.Equal(t, "Liked Meme 1", liked[0].Name)
}

func TestCaption_Fallback(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.Equal(t, fallbackCaption, f.svc.Caption(ctx))

	f.svc.captioner = stubCaptioner{err: errors.New("quota")}
	require.Equal(t, fallbackCaption, f.svc.Caption(ctx))

	f.svc.captioner = stubCaptioner{caption: "me when go build passes"}
	require.Equal(t, "me when go build passes", f.svc.Caption(ctx))
}

// slowStore widens the window between a read and the following write.
type slowStore struct {
	*mapStore
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, key Key) ([]byte, error) {
	v, err := s.mapStore.Get(ctx, key)
	time.Sleep(s.delay)
	return v, err
}

func newSlowService(t *testing.T) (*Service, *mapStore) {
	t.Helper()
	store := newMapStore()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc, err := NewService(log, &fakeCatalog{}, slowStore{mapStore: store, delay: time.Millisecond},
		fieldsWords{}, &recordedEvents{}, nil, Options{Seed: 1})
	require.NoError(t, err)
	return svc, store
}

func TestLike_ConcurrentLikesAllCount(t *testing.T) {
	svc, store := newSlowService(t)
	ctx := context.Background()

	const n = 50
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Like(ctx, "42", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	raw, err := store.Get(ctx, LikesKey("42"))
	require.NoError(t, err)
	require.Equal(t, fmt.Sprint(n), string(raw))
}

func TestComment_ConcurrentCommentsAllKept(t *testing.T) {
	svc, _ := newSlowService(t)
	ctx := context.Background()

	const n = 30
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Comment(ctx, "42", fmt.Sprintf("comment %d", i))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	d, err := svc.Detail(ctx, "42", "")
	require.NoError(t, err)
	require.Len(t, d.Comments, n)
}

func TestLike_ConcurrentUsersKeepLikedList(t *testing.T) {
	svc, _ := newSlowService(t)
	ctx := context.Background()

	errs := make(chan error, 10)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Like(ctx, fmt.Sprint(i), "admin")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	liked, err := svc.LikedMemes(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, liked, 10)
}

package core

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func catalogOf(n int) []Meme {
	memes := make([]Meme, 0, n)
	for i := range n {
		memes = append(memes, Meme{
			ID:       fmt.Sprintf("m%d", i),
			Name:     fmt.Sprintf("Meme %d", i),
			URL:      fmt.Sprintf("https://i.example.com/%d.jpg", i),
			Likes:    (i * 37) % 1000,
			Comments: (i * 11) % 100,
		})
	}
	return memes
}

func ids(memes []Meme) []string {
	out := make([]string, 0, len(memes))
	for _, m := range memes {
		out = append(out, m.ID)
	}
	return out
}

func TestFilter_EmptyQueryKeepsAll(t *testing.T) {
	memes := catalogOf(7)
	require.Equal(t, memes, Filter(memes, ""))
}

func TestFilter_CaseInsensitiveSubstring(t *testing.T) {
	memes := []Meme{
		{ID: "1", Name: "Drake Hotline Bling"},
		{ID: "2", Name: "Distracted Boyfriend"},
		{ID: "3", Name: "two buttons"},
		{ID: "4", Name: "DRAKE again"},
	}
	require.Equal(t, []string{"1", "4"}, ids(Filter(memes, "drake")))
	require.Equal(t, []string{"3"}, ids(Filter(memes, "BUTTON")))
	require.Empty(t, Filter(memes, "nothing matches"))
}

func TestFilter_Idempotent(t *testing.T) {
	memes := catalogOf(40)
	for _, q := range []string{"", "1", "meme 2", "xyz"} {
		once := Filter(memes, q)
		require.Equal(t, once, Filter(once, q), "query %q", q)
	}
}

func TestFilter_NilInput(t *testing.T) {
	require.Empty(t, Filter(nil, "x"))
	require.Empty(t, Filter(nil, ""))
}

func TestCategorize_NewAndClassicWindow(t *testing.T) {
	memes := catalogOf(25)

	fresh := Categorize(memes, CategoryNew, nil)
	require.Len(t, fresh, 20)
	require.Equal(t, ids(memes[:20]), ids(fresh))

	classic := Categorize(memes, CategoryClassic, nil)
	require.Len(t, classic, 20)
	require.Equal(t, ids(memes[5:]), ids(classic))

	small := catalogOf(3)
	require.Len(t, Categorize(small, CategoryNew, nil), 3)
	require.Len(t, Categorize(small, CategoryClassic, nil), 3)
}

func TestCategorize_TrendingIsIdentity(t *testing.T) {
	memes := catalogOf(30)
	require.Equal(t, memes, Categorize(memes, CategoryTrending, nil))
}

func TestCategorize_RandomIsPermutation(t *testing.T) {
	memes := catalogOf(50)
	r := rand.New(rand.NewPCG(1, 2))
	shuffle := func(m []Meme) { r.Shuffle(len(m), func(i, j int) { m[i], m[j] = m[j], m[i] }) }

	got := Categorize(memes, CategoryRandom, shuffle)
	require.Len(t, got, len(memes))

	want := ids(memes)
	have := ids(got)
	slices.Sort(want)
	slices.Sort(have)
	require.Equal(t, want, have)

	// the input is not shuffled in place
	require.Equal(t, "m0", memes[0].ID)
}

func TestSort_LikesDescendingStable(t *testing.T) {
	memes := []Meme{
		{ID: "a", Likes: 3},
		{ID: "b", Likes: 1},
		{ID: "c", Likes: 4},
		{ID: "d", Likes: 1},
		{ID: "e", Likes: 5},
	}
	got := Sort(memes, SortLikes)
	require.Equal(t, []string{"e", "c", "a", "b", "d"}, ids(got))
	for i := 0; i+1 < len(got); i++ {
		require.GreaterOrEqual(t, got[i].Likes, got[i+1].Likes)
	}
}

func TestSort_CommentsAndNone(t *testing.T) {
	memes := []Meme{
		{ID: "a", Comments: 2},
		{ID: "b", Comments: 9},
		{ID: "c", Comments: 2},
	}
	require.Equal(t, []string{"b", "a", "c"}, ids(Sort(memes, SortComments)))
	require.Equal(t, []string{"a", "b", "c"}, ids(Sort(memes, SortNone)))
}

func TestPaginate(t *testing.T) {
	memes := catalogOf(30)
	prev := 0
	for page := 1; page <= 5; page++ {
		got := Paginate(memes, page, 12)
		require.Len(t, got, min(page*12, len(memes)))
		require.GreaterOrEqual(t, len(got), prev)
		prev = len(got)
	}
	require.Empty(t, Paginate(memes, 0, 12))
}

func TestProcess_NewCategoryFirstPage(t *testing.T) {
	memes := catalogOf(25)
	page := Process(memes, ViewState{Category: CategoryNew, SortKey: SortNone, PageSize: 12, PageCount: 1}, nil)

	require.Len(t, page.Memes, 12)
	require.Equal(t, 20, page.Total)
	require.True(t, page.HasMore)

	first20 := ids(memes[:20])
	for _, m := range page.Memes {
		require.Contains(t, first20, m.ID)
	}
}

func TestProcess_SortByLikesScenario(t *testing.T) {
	memes := []Meme{
		{ID: "a", Likes: 3},
		{ID: "b", Likes: 1},
		{ID: "c", Likes: 4},
		{ID: "d", Likes: 1},
		{ID: "e", Likes: 5},
	}
	page := Process(memes, ViewState{Category: CategoryTrending, SortKey: SortLikes, PageSize: 12, PageCount: 1}, nil)

	likes := make([]int, 0, len(page.Memes))
	for _, m := range page.Memes {
		likes = append(likes, m.Likes)
	}
	require.Equal(t, []int{5, 4, 3, 1, 1}, likes)
	require.Equal(t, []string{"e", "c", "a", "b", "d"}, ids(page.Memes))
	require.False(t, page.HasMore)
}

func TestProcess_FilterBeforeCategory(t *testing.T) {
	memes := catalogOf(40)
	// "Meme 1" matches 1 and 10..19
	page := Process(memes, ViewState{Query: "meme 1", Category: CategoryClassic, PageSize: 5, PageCount: 1}, nil)
	require.Equal(t, 11, page.Total)
	require.Equal(t, []string{"m1", "m10", "m11", "m12", "m13"}, ids(page.Memes))
}

func TestProcess_EmptyCatalog(t *testing.T) {
	page := Process(nil, ViewState{Category: CategoryRandom, PageCount: 3}, nil)
	require.Empty(t, page.Memes)
	require.Zero(t, page.Total)
	require.Equal(t, DefaultPageSize, page.PageSize)
	require.False(t, page.HasMore)
}

func TestParseCategoryAndSortKey(t *testing.T) {
	for in, want := range map[string]Category{
		"": CategoryTrending, "trending": CategoryTrending, "NEW": CategoryNew,
		"Classic": CategoryClassic, " random ": CategoryRandom,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseCategory("hot")
	require.ErrorIs(t, err, ErrBadArguments)

	key, err := ParseSortKey("Likes")
	require.NoError(t, err)
	require.Equal(t, SortLikes, key)
	key, err = ParseSortKey("")
	require.NoError(t, err)
	require.Equal(t, SortNone, key)
	_, err = ParseSortKey("views")
	require.ErrorIs(t, err, ErrBadArguments)
}

func TestKeyString(t *testing.T) {
	require.Equal(t, "meme_details_181913649", DetailsKey("181913649").String())
	require.Equal(t, "meme_likes_7", LikesKey("7").String())
	require.Equal(t, "meme_comments_7", CommentsKey("7").String())
	require.Equal(t, "user_profile_admin", Key{Kind: KindProfile, ID: "admin"}.String())
	require.Equal(t, "user_uploaded_memes_admin", Key{Kind: KindUploads, ID: "admin"}.String())
	require.Equal(t, "user_liked_memes_admin", Key{Kind: KindLiked, ID: "admin"}.String())
	require.False(t, Key{Kind: KindLikes}.Valid())
	require.False(t, Key{Kind: "bogus", ID: "1"}.Valid())
}

package core

import (
	"cmp"
	"slices"
	"strings"
)

// Filter keeps the memes whose name contains query, ignoring case.
// An empty query keeps everything.
func Filter(memes []Meme, query string) []Meme {
	out := make([]Meme, 0, len(memes))
	if query == "" {
		return append(out, memes...)
	}
	q := strings.ToLower(query)
	for _, m := range memes {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

// Categorize shapes an already filtered list. New keeps the first 20,
// Classic the last 20 and Random hands a copy to shuffle.
func Categorize(memes []Meme, category Category, shuffle func([]Meme)) []Meme {
	switch category {
	case CategoryNew:
		return slices.Clone(memes[:min(len(memes), categoryWindow)])
	case CategoryClassic:
		return slices.Clone(memes[max(0, len(memes)-categoryWindow):])
	case CategoryRandom:
		out := slices.Clone(memes)
		if shuffle != nil {
			shuffle(out)
		}
		return out
	default:
		return slices.Clone(memes)
	}
}

// Sort orders memes by the key, highest first. Equal keys keep their
// relative order.
func Sort(memes []Meme, key SortKey) []Meme {
	out := slices.Clone(memes)
	switch key {
	case SortLikes:
		slices.SortStableFunc(out, func(a, b Meme) int { return cmp.Compare(b.Likes, a.Likes) })
	case SortComments:
		slices.SortStableFunc(out, func(a, b Meme) int { return cmp.Compare(b.Comments, a.Comments) })
	}
	return out
}

func Paginate(memes []Meme, pageCount, pageSize int) []Meme {
	if pageCount < 1 || pageSize < 1 {
		return []Meme{}
	}
	n := min(len(memes), pageCount*pageSize)
	return slices.Clone(memes[:n])
}

// Process runs the full pipeline for one view state.
func Process(memes []Meme, st ViewState, shuffle func([]Meme)) Page {
	pageSize := st.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageCount := max(st.PageCount, 1)

	processed := Sort(Categorize(Filter(memes, st.Query), st.Category, shuffle), st.SortKey)
	window := Paginate(processed, pageCount, pageSize)
	return Page{
		Memes:     window,
		Total:     len(processed),
		PageCount: pageCount,
		PageSize:  pageSize,
		HasMore:   len(window) < len(processed),
	}
}

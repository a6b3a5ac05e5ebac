package core

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 12
	categoryWindow  = 20
)

type Meme struct {
	ID       string
	Name     string
	URL      string
	Likes    int
	Comments int
}

// CatalogEntry is a meme as the catalog source returns it, before the
// engagement counters are attached.
type CatalogEntry struct {
	ID   string
	Name string
	URL  string
}

type Category string

const (
	CategoryTrending Category = "Trending"
	CategoryNew      Category = "New"
	CategoryClassic  Category = "Classic"
	CategoryRandom   Category = "Random"
)

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "trending":
		return CategoryTrending, nil
	case "new":
		return CategoryNew, nil
	case "classic":
		return CategoryClassic, nil
	case "random":
		return CategoryRandom, nil
	default:
		return "", ErrBadArguments
	}
}

type SortKey string

const (
	SortNone     SortKey = "none"
	SortLikes    SortKey = "likes"
	SortComments SortKey = "comments"
)

func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "likes":
		return SortLikes, nil
	case "comments":
		return SortComments, nil
	default:
		return "", ErrBadArguments
	}
}

type ViewState struct {
	Query     string
	Category  Category
	SortKey   SortKey
	PageSize  int
	PageCount int
}

type Page struct {
	Memes     []Meme
	Total     int
	PageCount int
	PageSize  int
	HasMore   bool
}

type Detail struct {
	Meme     Meme
	Likes    int
	Comments []string
	Sample   bool
}

type Profile struct {
	Name    string `json:"name"`
	Bio     string `json:"bio"`
	Picture string `json:"profilePicture"`
}

type Upload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type UploadRequest struct {
	Name    string
	URL     string
	Caption string
}

type LeaderboardEntry struct {
	Rank int
	Meme Meme
}

type ServiceStats struct {
	Sessions    int
	Leaderboard time.Time
}

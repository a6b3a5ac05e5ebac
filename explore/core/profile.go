package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

var (
	defaultProfile = Profile{
		Name:    "Your Name",
		Bio:     "This is your bio.",
		Picture: "/default-profile.jpg",
	}
	sampleUploads = []Upload{
		{ID: "1", Name: "Uploaded Meme 1", URL: "https://i.imgflip.com/1bij.jpg", Likes: 100},
		{ID: "2", Name: "Uploaded Meme 2", URL: "https://i.imgflip.com/26am.jpg", Likes: 200},
	}
	sampleLiked = []likedMeme{
		{ID: "3", Name: "Liked Meme 1", URL: "https://i.imgflip.com/1otk96.jpg", Likes: 300},
		{ID: "4", Name: "Liked Meme 2", URL: "https://i.imgflip.com/1bij.jpg", Likes: 150},
	}
)

type likedMeme struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Likes int    `json:"likes"`
}

func (s *Service) Profile(ctx context.Context, user string) (Profile, error) {
	if user == "" {
		return Profile{}, ErrBadArguments
	}
	p := defaultProfile
	ok, err := s.loadJSON(ctx, Key{Kind: KindProfile, ID: user}, &p)
	if err != nil {
		return Profile{}, err
	}
	if !ok {
		return defaultProfile, nil
	}
	return p, nil
}

func (s *Service) SaveProfile(ctx context.Context, user string, p Profile) error {
	if user == "" || strings.TrimSpace(p.Name) == "" {
		return ErrBadArguments
	}
	if p.Picture == "" {
		p.Picture = defaultProfile.Picture
	}
	return s.saveJSON(ctx, Key{Kind: KindProfile, ID: user}, p)
}

func (s *Service) Uploads(ctx context.Context, user string) ([]Upload, error) {
	if user == "" {
		return nil, ErrBadArguments
	}
	var uploads []Upload
	ok, err := s.loadJSON(ctx, Key{Kind: KindUploads, ID: user}, &uploads)
	if err != nil {
		return nil, err
	}
	if !ok {
		return slices.Clone(sampleUploads), nil
	}
	return uploads, nil
}

// Upload records the metadata of an uploaded meme. The image itself is
// not transferred.
func (s *Service) Upload(ctx context.Context, user string, req UploadRequest) (Upload, error) {
	if user == "" || strings.TrimSpace(req.URL) == "" {
		return Upload{}, ErrBadArguments
	}
	if len(req.Caption) > maxTextLen || len(req.Name) > maxTextLen {
		return Upload{}, ErrRequestTooLarge
	}

	key := Key{Kind: KindUploads, ID: user}
	unlock := s.keys.lock(key)
	defer unlock()

	var uploads []Upload
	ok, err := s.loadJSON(ctx, key, &uploads)
	if err != nil {
		return Upload{}, err
	}
	if !ok {
		uploads = nil
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.Caption)
	}
	if name == "" {
		name = "Untitled meme"
	}
	up := Upload{
		ID:        s.opts.NewID(),
		Name:      name,
		URL:       strings.TrimSpace(req.URL),
		Caption:   strings.TrimSpace(req.Caption),
		Tags:      s.words.Norm(req.Caption),
		CreatedAt: s.opts.Now(),
	}
	uploads = append(uploads, up)
	if err := s.saveJSON(ctx, key, uploads); err != nil {
		return Upload{}, err
	}
	if s.events != nil {
		s.events.PublishUploaded(up.ID)
	}
	return up, nil
}

func (s *Service) LikedMemes(ctx context.Context, user string) ([]Meme, error) {
	if user == "" {
		return nil, ErrBadArguments
	}
	var liked []likedMeme
	ok, err := s.loadJSON(ctx, Key{Kind: KindLiked, ID: user}, &liked)
	if err != nil {
		return nil, err
	}
	if !ok {
		liked = sampleLiked
	}
	out := make([]Meme, 0, len(liked))
	for _, l := range liked {
		out = append(out, Meme{ID: l.ID, Name: l.Name, URL: l.URL, Likes: l.Likes})
	}
	return out, nil
}

func (s *Service) addLiked(ctx context.Context, user string, m Meme) error {
	key := Key{Kind: KindLiked, ID: user}
	unlock := s.keys.lock(key)
	defer unlock()

	var liked []likedMeme
	ok, err := s.loadJSON(ctx, key, &liked)
	if err != nil {
		return err
	}
	if !ok {
		liked = nil
	}
	liked = slices.DeleteFunc(liked, func(l likedMeme) bool { return l.ID == m.ID })
	liked = slices.Insert(liked, 0, likedMeme{ID: m.ID, Name: m.Name, URL: m.URL, Likes: m.Likes})
	return s.saveJSON(ctx, key, liked)
}

// loadJSON decodes the value under key into out. It reports false when
// the key is missing or holds malformed JSON; callers then use defaults.
func (s *Service) loadJSON(ctx context.Context, key Key, out any) (bool, error) {
	raw, found, err := s.get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn("malformed stored value", "key", key.String(), "error", err)
		return false, nil
	}
	return true, nil
}

func (s *Service) saveJSON(ctx context.Context, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

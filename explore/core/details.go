package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type memeSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	URL      string          `json:"url"`
	Likes    json.RawMessage `json:"likes,omitempty"`
	Comments json.RawMessage `json:"comments,omitempty"`
}

// Detail loads what the detail view shows for a meme. When sessionID names
// a live session holding the meme, its snapshot is remembered first; an
// unknown session only skips that step.
func (s *Service) Detail(ctx context.Context, memeID, sessionID string) (Detail, error) {
	if memeID == "" {
		return Detail{}, ErrBadArguments
	}
	if sessionID != "" {
		if err := s.remember(ctx, memeID, sessionID); err != nil {
			s.log.Warn("meme snapshot not remembered", "meme", memeID, "session", sessionID, "error", err)
		}
	}
	return s.loadDetail(ctx, memeID)
}

func (s *Service) Like(ctx context.Context, memeID, user string) (int, error) {
	if memeID == "" {
		return 0, ErrBadArguments
	}
	unlock := s.keys.lock(LikesKey(memeID))
	defer unlock()

	d, err := s.loadDetail(ctx, memeID)
	if err != nil {
		return 0, err
	}
	likes := d.Likes + 1
	if err := s.store.Set(ctx, LikesKey(memeID), []byte(strconv.Itoa(likes))); err != nil {
		return 0, fmt.Errorf("store likes: %w", err)
	}
	if user != "" {
		d.Meme.Likes = likes
		if err := s.addLiked(ctx, user, d.Meme); err != nil {
			s.log.Warn("liked list update failed", "user", user, "meme", memeID, "error", err)
		}
	}
	if s.events != nil {
		s.events.PublishLiked(memeID, likes)
	}
	return likes, nil
}

func (s *Service) Comment(ctx context.Context, memeID, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if memeID == "" || text == "" {
		return nil, ErrBadArguments
	}
	if len(text) > maxTextLen {
		return nil, ErrRequestTooLarge
	}
	unlock := s.keys.lock(CommentsKey(memeID))
	defer unlock()

	d, err := s.loadDetail(ctx, memeID)
	if err != nil {
		return nil, err
	}
	comments := append(d.Comments, text)
	data, err := json.Marshal(comments)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, CommentsKey(memeID), data); err != nil {
		return nil, fmt.Errorf("store comments: %w", err)
	}
	if s.events != nil {
		s.events.PublishCommented(memeID, len(comments))
	}
	return comments, nil
}

func (s *Service) remember(ctx context.Context, memeID, sessionID string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	m, ok := sess.lookup(memeID)
	if !ok {
		return nil
	}
	data, err := json.Marshal(memeSnapshot{
		ID:       m.ID,
		Name:     m.Name,
		URL:      m.URL,
		Likes:    json.RawMessage(strconv.Itoa(m.Likes)),
		Comments: json.RawMessage(strconv.Itoa(m.Comments)),
	})
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, DetailsKey(memeID), data); err != nil {
		return fmt.Errorf("store details: %w", err)
	}
	return nil
}

func (s *Service) loadDetail(ctx context.Context, memeID string) (Detail, error) {
	d := sampleDetail(memeID)

	raw, found, err := s.get(ctx, DetailsKey(memeID))
	if err != nil {
		return Detail{}, err
	}
	if found {
		var snap memeSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			s.log.Warn("malformed meme snapshot", "meme", memeID, "error", err)
		} else {
			d = Detail{Meme: Meme{ID: snap.ID, Name: snap.Name, URL: snap.URL}}
			if d.Meme.ID == "" {
				d.Meme.ID = memeID
			}
			var likes int
			if len(snap.Likes) > 0 && json.Unmarshal(snap.Likes, &likes) == nil {
				d.Likes = likes
			}
			if comments, ok := commentList(snap.Comments); ok {
				d.Comments = comments
			}
		}
	}

	if likes, ok := s.storedLikes(ctx, memeID); ok {
		d.Likes = likes
	}

	raw, found, err = s.get(ctx, CommentsKey(memeID))
	if err != nil {
		return Detail{}, err
	}
	if found {
		if comments, ok := commentList(raw); ok {
			d.Comments = comments
		} else {
			s.log.Warn("malformed stored comments", "meme", memeID)
		}
	}

	d.Meme.Likes = d.Likes
	d.Meme.Comments = len(d.Comments)
	if d.Comments == nil {
		d.Comments = []string{}
	}
	return d, nil
}

func (s *Service) storedLikes(ctx context.Context, memeID string) (int, bool) {
	raw, found, err := s.get(ctx, LikesKey(memeID))
	if err != nil {
		s.log.Warn("stored likes read failed", "meme", memeID, "error", err)
		return 0, false
	}
	if !found {
		return 0, false
	}
	likes, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		s.log.Warn("malformed stored likes", "meme", memeID, "error", err)
		return 0, false
	}
	return likes, true
}

func (s *Service) get(ctx context.Context, key Key) ([]byte, bool, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return raw, true, nil
}

func sampleDetail(memeID string) Detail {
	return Detail{
		Meme: Meme{
			ID:   memeID,
			Name: "Sample Meme #" + memeID,
			URL:  sampleMemeImageURL,
		},
		Sample: true,
	}
}

// commentList accepts a JSON array of comments or any single JSON value,
// which becomes a one-element list.
func commentList(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return []string{stringify(v)}, true
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringify(item))
	}
	return out, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

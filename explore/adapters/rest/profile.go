package rest

import (
	"log/slog"
	"net/http"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

func NewProfileHandler(log *slog.Logger, profiles core.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userOrUnauthorized(w, r)
		if !ok {
			return
		}
		p, err := profiles.Profile(r.Context(), user)
		if err != nil {
			writeError(log, w, "profile", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func NewSaveProfileHandler(log *slog.Logger, profiles core.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userOrUnauthorized(w, r)
		if !ok {
			return
		}
		var req profileRequest
		if err := decode(w, r, &req, false); err != nil {
			writeError(log, w, "save profile", err)
			return
		}
		p := core.Profile{Name: req.Name, Bio: req.Bio, Picture: req.Picture}
		if err := profiles.SaveProfile(r.Context(), user, p); err != nil {
			writeError(log, w, "save profile", err)
			return
		}
		saved, err := profiles.Profile(r.Context(), user)
		if err != nil {
			writeError(log, w, "save profile", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func NewUploadsHandler(log *slog.Logger, profiles core.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userOrUnauthorized(w, r)
		if !ok {
			return
		}
		uploads, err := profiles.Uploads(r.Context(), user)
		if err != nil {
			writeError(log, w, "uploads", err)
			return
		}
		if uploads == nil {
			uploads = []core.Upload{}
		}
		writeJSON(w, http.StatusOK, map[string][]core.Upload{"uploads": uploads})
	}
}

func NewUploadHandler(log *slog.Logger, profiles core.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userOrUnauthorized(w, r)
		if !ok {
			return
		}
		var req uploadRequest
		if err := decode(w, r, &req, false); err != nil {
			writeError(log, w, "upload", err)
			return
		}
		up, err := profiles.Upload(r.Context(), user, core.UploadRequest{
			Name:    req.Name,
			URL:     req.URL,
			Caption: req.Caption,
		})
		if err != nil {
			writeError(log, w, "upload", err)
			return
		}
		writeJSON(w, http.StatusCreated, up)
	}
}

func NewLikedHandler(log *slog.Logger, profiles core.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userOrUnauthorized(w, r)
		if !ok {
			return
		}
		liked, err := profiles.LikedMemes(r.Context(), user)
		if err != nil {
			writeError(log, w, "liked memes", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]memeReply{"memes": toMemeReplies(liked)})
	}
}

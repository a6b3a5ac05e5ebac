package rest

import (
	"log/slog"
	"net/http"

	"github.com/Sarojini27-bose/memeverse/explore/adapters/rest/middleware"
	"github.com/Sarojini27-bose/memeverse/explore/core"
)

func NewDetailHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := explorer.Detail(r.Context(), r.PathValue("id"), r.URL.Query().Get("session"))
		if err != nil {
			writeError(log, w, "detail", err)
			return
		}
		writeJSON(w, http.StatusOK, detailReply{
			ID:       d.Meme.ID,
			Name:     d.Meme.Name,
			URL:      d.Meme.URL,
			Likes:    d.Likes,
			Comments: d.Comments,
			Sample:   d.Sample,
		})
	}
}

// NewLikeHandler counts a like. Signed-in users also get the meme added
// to their liked list.
func NewLikeHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())
		likes, err := explorer.Like(r.Context(), r.PathValue("id"), user)
		if err != nil {
			writeError(log, w, "like", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"likes": likes})
	}
}

func NewCommentHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentRequest
		if err := decode(w, r, &req, false); err != nil {
			writeError(log, w, "comment", err)
			return
		}
		comments, err := explorer.Comment(r.Context(), r.PathValue("id"), req.Text)
		if err != nil {
			writeError(log, w, "comment", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string][]string{"comments": comments})
	}
}

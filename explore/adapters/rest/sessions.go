package rest

import (
	"log/slog"
	"net/http"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

func NewOpenSessionHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := decode(w, r, &req, true); err != nil {
			writeError(log, w, "open session", err)
			return
		}
		category, err := core.ParseCategory(req.Category)
		if err != nil {
			writeError(log, w, "open session", err)
			return
		}
		sortKey, err := core.ParseSortKey(req.Sort)
		if err != nil {
			writeError(log, w, "open session", err)
			return
		}

		sess, err := explorer.OpenSession(r.Context(), core.SessionOptions{
			Query:    req.Query,
			Category: category,
			SortKey:  sortKey,
			PageSize: req.PageSize,
		})
		if err != nil {
			writeError(log, w, "open session", err)
			return
		}
		page, err := sess.Window()
		if err != nil {
			writeError(log, w, "open session", err)
			return
		}
		w.Header().Set("Location", "/api/sessions/"+sess.ID())
		writeJSON(w, http.StatusCreated, toPageReply(sess, page))
	}
}

func NewSessionHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := explorer.Session(r.PathValue("id"))
		if err != nil {
			writeError(log, w, "get session", err)
			return
		}
		page, err := sess.Window()
		if err != nil {
			writeError(log, w, "get session", err)
			return
		}
		writeJSON(w, http.StatusOK, toPageReply(sess, page))
	}
}

// NewUpdateSessionHandler applies the fields present in the body. A new
// query or category starts again from the first page; a new sort keeps
// the pages already shown.
func NewUpdateSessionHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := explorer.Session(r.PathValue("id"))
		if err != nil {
			writeError(log, w, "update session", err)
			return
		}
		var patch sessionPatch
		if err := decode(w, r, &patch, false); err != nil {
			writeError(log, w, "update session", err)
			return
		}
		if err := applyPatch(sess, patch); err != nil {
			writeError(log, w, "update session", err)
			return
		}
		page, err := sess.Window()
		if err != nil {
			writeError(log, w, "update session", err)
			return
		}
		writeJSON(w, http.StatusOK, toPageReply(sess, page))
	}
}

func applyPatch(sess *core.Session, patch sessionPatch) error {
	// parse everything before touching the session
	var (
		category core.Category
		sortKey  core.SortKey
		err      error
	)
	if patch.Category != nil {
		if category, err = core.ParseCategory(*patch.Category); err != nil {
			return err
		}
	}
	if patch.Sort != nil {
		if sortKey, err = core.ParseSortKey(*patch.Sort); err != nil {
			return err
		}
	}

	if patch.Query != nil {
		if err := sess.SetQuery(*patch.Query); err != nil {
			return err
		}
	}
	if patch.Category != nil {
		if err := sess.SetCategory(category); err != nil {
			return err
		}
	}
	if patch.Sort != nil {
		if err := sess.SetSort(sortKey); err != nil {
			return err
		}
	}
	return nil
}

// NewNextPageHandler is the pagination trigger. seen is required: the page
// count the client rendered when its list end became visible. Repeated or
// stale signals leave the session unchanged.
func NewNextPageHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seen, err := parseSeen(r.URL.Query().Get("seen"))
		if err != nil {
			writeError(log, w, "next page", err)
			return
		}
		sess, err := explorer.Session(r.PathValue("id"))
		if err != nil {
			writeError(log, w, "next page", err)
			return
		}
		advanced, err := sess.RequestNextPage(seen)
		if err != nil {
			writeError(log, w, "next page", err)
			return
		}
		page, err := sess.Window()
		if err != nil {
			writeError(log, w, "next page", err)
			return
		}
		writeJSON(w, http.StatusOK, nextPageReply{pageReply: toPageReply(sess, page), Advanced: advanced})
	}
}

func NewCloseSessionHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := explorer.CloseSession(r.PathValue("id")); err != nil {
			writeError(log, w, "close session", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

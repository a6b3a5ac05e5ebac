package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sarojini27-bose/memeverse/explore/adapters/rest/middleware"
	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const maxBodyBytes = 64 << 10

var validate = validator.New()

type pingReply struct {
	Replies map[string]string `json:"replies"`
}

type memeReply struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

type pageReply struct {
	Session   string      `json:"session"`
	Query     string      `json:"query"`
	Category  string      `json:"category"`
	Sort      string      `json:"sort"`
	Memes     []memeReply `json:"memes"`
	Total     int         `json:"total"`
	PageCount int         `json:"page_count"`
	PageSize  int         `json:"page_size"`
	HasMore   bool        `json:"has_more"`
}

type nextPageReply struct {
	pageReply
	Advanced bool `json:"advanced"`
}

type detailReply struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Likes    int      `json:"likes"`
	Comments []string `json:"comments"`
	Sample   bool     `json:"sample"`
}

type leaderboardEntry struct {
	Rank int `json:"rank"`
	memeReply
}

type leaderboardReply struct {
	Entries []leaderboardEntry `json:"entries"`
}

type statsReply struct {
	Sessions           int        `json:"sessions"`
	LeaderboardBuiltAt *time.Time `json:"leaderboard_built_at,omitempty"`
}

type loginRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=128"`
}

type sessionRequest struct {
	Query    string `json:"query" validate:"max=256"`
	Category string `json:"category" validate:"max=32"`
	Sort     string `json:"sort" validate:"max=32"`
	PageSize int    `json:"page_size" validate:"omitempty,min=1,max=100"`
}

type sessionPatch struct {
	Query    *string `json:"query" validate:"omitempty,max=256"`
	Category *string `json:"category" validate:"omitempty,max=32"`
	Sort     *string `json:"sort" validate:"omitempty,max=32"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

type profileRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Bio     string `json:"bio" validate:"max=1000"`
	Picture string `json:"profilePicture" validate:"max=2048"`
}

type uploadRequest struct {
	Name    string `json:"name" validate:"max=256"`
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption"`
}

type authService interface {
	IssueToken(user string) (string, error)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core errors to HTTP statuses. Unknown errors are logged
// and reported as 500.
func writeError(log *slog.Logger, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, core.ErrBadArguments):
		http.Error(w, "bad request", http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, core.ErrRequestTooLarge):
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, core.ErrUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		log.Error(op+" failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// decode reads a JSON body into v and validates it. An empty body leaves
// v untouched when allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ErrRequestTooLarge
		}
		return core.ErrBadArguments
	}
	if err := validate.Struct(v); err != nil {
		return core.ErrBadArguments
	}
	return nil
}

func toMemeReply(m core.Meme) memeReply {
	return memeReply{ID: m.ID, Name: m.Name, URL: m.URL, Likes: m.Likes, Comments: m.Comments}
}

func toMemeReplies(memes []core.Meme) []memeReply {
	out := make([]memeReply, 0, len(memes))
	for _, m := range memes {
		out = append(out, toMemeReply(m))
	}
	return out
}

func toPageReply(sess *core.Session, page core.Page) pageReply {
	st := sess.State()
	return pageReply{
		Session:   sess.ID(),
		Query:     st.Query,
		Category:  string(st.Category),
		Sort:      string(st.SortKey),
		Memes:     toMemeReplies(page.Memes),
		Total:     page.Total,
		PageCount: page.PageCount,
		PageSize:  page.PageSize,
		HasMore:   page.HasMore,
	}
}

func NewPingHandler(log *slog.Logger, pingers map[string]core.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := pingReply{Replies: map[string]string{}}
		for name, p := range pingers {
			if err := p.Ping(r.Context()); err != nil {
				log.Warn("ping failed", "service", name, "error", err)
				resp.Replies[name] = "unavailable"
				continue
			}
			resp.Replies[name] = "ok"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func NewLoginHandler(log *slog.Logger, auth authService, adminUser, adminPass string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decode(w, r, &req, false); err != nil {
			writeError(log, w, "login", err)
			return
		}

		if req.Name != adminUser || req.Password != adminPass {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		token, err := auth.IssueToken(req.Name)
		if err != nil {
			log.Error("failed to issue token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(token))
	}
}

func NewStatsHandler(explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := explorer.Stats(r.Context())
		reply := statsReply{Sessions: st.Sessions}
		if !st.Leaderboard.IsZero() {
			reply.LeaderboardBuiltAt = &st.Leaderboard
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func NewCaptionHandler(explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"caption": explorer.Caption(r.Context())})
	}
}

func NewLeaderboardHandler(log *slog.Logger, explorer core.Explorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := explorer.Leaderboard(r.Context())
		if err != nil {
			writeError(log, w, "leaderboard", err)
			return
		}
		reply := leaderboardReply{Entries: make([]leaderboardEntry, 0, len(board))}
		for _, e := range board {
			reply.Entries = append(reply.Entries, leaderboardEntry{Rank: e.Rank, memeReply: toMemeReply(e.Meme)})
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

// parseSeen requires a positive page count; a session always renders at
// least one page.
func parseSeen(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, core.ErrBadArguments
	}
	return v, nil
}

// userOrUnauthorized extracts the authenticated user or answers 401.
func userOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return user, ok
}

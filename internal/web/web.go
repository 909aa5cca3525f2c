// Package web serves the local JSON front for setlist.
//
// Every route runs behind server.Guard, so the session cookie decides which paths are reachable exactly
// as it did in the browser front: protected paths need the cookie, auth pages send a signed-in user to the
// dashboard, and "/" forwards to one or the other.
//
// Routes
//
//	GET    /auth/login               → login view descriptor
//	POST   /auth/login               → log in, set the access_token cookie
//	GET    /auth/register            → register view descriptor
//	POST   /auth/register            → create an account
//	POST   /auth/logout              → clear session and cookie
//	GET    /dashboard                → playlists and the first songs
//	GET    /songs                    → song listing (?title=&page=&per-page=)
//	GET    /playlist                 → playlist collection
//	POST   /playlist                 → create playlist
//	GET    /playlist/{id}            → playlist detail
//	PATCH  /playlist/{id}            → update playlist
//	DELETE /playlist/{id}            → delete playlist
//	POST   /playlist/{id}/songs      → add a song by id or title
//	DELETE /playlist/{id}/songs/{song} → remove a song
//	POST   /playlist/cover           → upload a cover image, optionally attaching it to playlist_id
//
// Reads go through the query cache and writes through the mutation coordinator. The process holds one
// session, so the front is meant for a single local user.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/mutation"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/server"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
)

// SongsPerPage is the default page size of the song browser.
const SongsPerPage = 20

// Deps are the collaborators an [App] needs.
type Deps struct {
	Session    *session.Store
	Reader     *query.Reader
	Mutations  *mutation.Coordinator
	Logger     *log.Logger
	Production bool
}

// App holds the web front's handlers.
type App struct {
	Deps
}

func New(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	return &App{Deps: deps}
}

// Handler builds the guarded router.
func (a *App) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Recover(a.Logger), server.RequestLogger(a.Logger), server.Guard(session.CookieName))
	a.Register(r)
	return r
}

// Register adds every route to r.
func (a *App) Register(r *server.BasicRouter) {
	r.HandleFunc(http.MethodGet, "/{$}", a.root)
	r.HandleFunc(http.MethodGet, routes.LoginPath, a.view("login", "username", "password"))
	r.HandleFunc(http.MethodPost, routes.LoginPath, a.login)
	r.HandleFunc(http.MethodGet, routes.RegisterPath, a.view("register", "first_name", "last_name", "username", "password", "confirm_password"))
	r.HandleFunc(http.MethodPost, routes.RegisterPath, a.register)
	r.HandleFunc(http.MethodPost, "/auth/logout", a.logout)
	r.HandleFunc(http.MethodGet, routes.DashboardPath, a.dashboard)
	r.HandleFunc(http.MethodGet, routes.SongsPath, a.songs)
	r.HandleFunc(http.MethodGet, "/playlist", a.playlists)
	r.HandleFunc(http.MethodPost, "/playlist", a.createPlaylist)
	r.HandleFunc(http.MethodPost, "/playlist/cover", a.uploadCover)
	r.HandleFunc(http.MethodGet, "/playlist/{id}", a.playlist)
	r.HandleFunc(http.MethodPatch, "/playlist/{id}", a.updatePlaylist)
	r.HandleFunc(http.MethodDelete, "/playlist/{id}", a.deletePlaylist)
	r.HandleFunc(http.MethodPost, "/playlist/{id}/songs", a.addSong)
	r.HandleFunc(http.MethodDelete, "/playlist/{id}/songs/{song}", a.removeSong)
}

type response struct {
	OK      bool   `json:"ok"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, response{OK: true, Result: result})
}

// fail maps the gateway error taxonomy onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *models.ValidationError
		apiErr *services.APIError
	)

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		http.SetCookie(w, session.ExpiredCookie(a.Production))
		if r.Method == http.MethodGet {
			http.Redirect(w, r, routes.LoginPath, http.StatusSeeOther)
			return
		}
		w.Header().Set("Location", routes.LoginPath)
		writeJSON(w, http.StatusUnauthorized, response{Message: err.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, response{Message: verr.Error(), Field: verr.Field})
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		writeJSON(w, status, response{Message: apiErr.Message})
	case errors.Is(err, shared.ErrTimeout):
		a.Logger.Warn("upstream timed out", "error", err)
		writeJSON(w, http.StatusGatewayTimeout, response{Message: shared.ErrTimeout.Error()})
	case services.IsTransport(err):
		a.Logger.Warn("upstream unreachable", "error", err)
		writeJSON(w, http.StatusBadGateway, response{Message: shared.ErrServiceUnavailable.Error()})
	case errors.Is(err, shared.ErrSongNotFound), errors.Is(err, shared.ErrPlaylistNotFound):
		writeJSON(w, http.StatusNotFound, response{Message: err.Error()})
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
	default:
		a.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: http.StatusText(http.StatusInternalServerError)})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(shared.ErrInvalidInput, err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil || v <= 0 {
		return 0, errors.Join(shared.ErrInvalidArgument, errors.New(name+" must be a positive integer"))
	}
	return v, nil
}

// root answers "/" when Register is mounted without [server.Guard]; behind
// the guard the request is redirected before it gets here.
func (a *App) root(w http.ResponseWriter, r *http.Request) {
	d := routes.Decide(r.URL.Path, a.Session.HasToken())
	http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
}

func (a *App) view(name string, fields ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, http.StatusOK, map[string]any{"view": name, "fields": fields})
	}
}

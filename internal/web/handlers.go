package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/session"
)

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}

	if !a.Session.Login(r.Context(), req) {
		writeJSON(w, http.StatusUnauthorized, response{Message: "Login failed"})
		return
	}

	tok := a.Session.Token()
	if tok == nil {
		writeJSON(w, http.StatusUnauthorized, response{Message: "Login failed"})
		return
	}
	http.SetCookie(w, session.NewCookie(tok.AccessToken, tok.Expiry, a.Production))
	writeResult(w, http.StatusOK, map[string]string{"redirect": routes.ReturnTarget(r.URL.Query())})
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		models.RegisterRequest
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	req := body.RegisterRequest
	req.ConfirmPassword = body.ConfirmPassword
	if err := req.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}

	if !a.Session.Register(r.Context(), req) {
		writeJSON(w, http.StatusUnprocessableEntity, response{Message: "Registration failed"})
		return
	}
	writeResult(w, http.StatusCreated, map[string]string{"redirect": routes.LoginPath})
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.Session.Logout()
	http.SetCookie(w, session.ExpiredCookie(a.Production))
	writeResult(w, http.StatusOK, map[string]string{"redirect": routes.LoginPath})
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.Reader.Dashboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, d)
}

func (a *App) songs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.SongFilters{Title: q.Get("title"), PerPage: SongsPerPage}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if per, err := strconv.Atoi(q.Get("per-page")); err == nil && per > 0 {
		filters.PerPage = per
	}

	songs, err := a.Reader.Songs(r.Context(), filters)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, models.Page[models.Song]{Items: songs})
}

func (a *App) playlists(w http.ResponseWriter, r *http.Request) {
	lists, err := a.Reader.Playlists(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, models.Page[models.Playlist]{Items: lists})
}

func (a *App) playlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.Reader.Playlist(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (a *App) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlaylistRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.Mutations.CreatePlaylist(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, p)
}

func (a *App) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req models.UpdatePlaylistRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.Mutations.UpdatePlaylist(r.Context(), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (a *App) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.Mutations.DeletePlaylist(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) addSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var body struct {
		SongID int    `json:"song_id"`
		Song   string `json:"song"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, r, err)
		return
	}

	songID := body.SongID
	if songID == 0 {
		s, err := a.Reader.ResolveSong(r.Context(), body.Song)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		songID = s.ID
	}

	p, err := a.Mutations.AddSong(r.Context(), id, songID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (a *App) removeSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	songID, err := pathInt(r, "song")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.Mutations.RemoveSong(r.Context(), id, songID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// maxCoverSize is the largest image accepted; the request body may carry
// up to formOverhead more bytes of multipart framing and fields.
const (
	maxCoverSize = 10 << 20
	formOverhead = 1 << 20
)

func (a *App) uploadCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCoverSize+formOverhead)
	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, response{Message: "image exceeds 10 MiB", Field: "image"})
			return
		}
		writeJSON(w, http.StatusBadRequest, response{Message: "expected multipart form", Field: "image"})
		return
	}

	playlistID := 0
	if raw := r.FormValue("playlist_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, response{Message: "playlist_id must be a positive integer", Field: "playlist_id"})
			return
		}
		playlistID = id
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, response{Message: "image is required", Field: "image"})
		return
	}
	defer file.Close()
	if header.Size > maxCoverSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, response{Message: "image exceeds 10 MiB", Field: "image"})
		return
	}

	url, err := a.Mutations.UploadCover(r.Context(), header.Filename, file)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result := map[string]any{"cover": url}
	if playlistID > 0 {
		p, err := a.Mutations.UpdatePlaylist(r.Context(), playlistID, models.UpdatePlaylistRequest{Cover: &url})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		result["playlist"] = p
	}
	writeResult(w, http.StatusOK, result)
}

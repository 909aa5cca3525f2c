package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
)

// Route names used by [FakeAPI] call counters, failures and holds.
const (
	RouteRegister    = "POST /site/register"
	RouteLogin       = "POST /site/login"
	RouteSongs       = "GET /song"
	RoutePlaylists   = "GET /playlist"
	RoutePlaylist    = "GET /playlist/{id}"
	RouteCreate      = "POST /playlist"
	RouteUpdate      = "PATCH /playlist/{id}"
	RouteDelete      = "DELETE /playlist/{id}"
	RouteAddSong     = "POST /playlist/add-song/{id}"
	RouteRemoveSong  = "DELETE /playlist/remove-song/{id}"
	RouteUploadCover = "POST /uploader/playlist-cover"
)

const (
	FakeUsername = "listener"
	FakePassword = "secret123"
	FakeToken    = "fake-access-token"
)

// FakeAPI is an in-memory rendition of the remote music API served over httptest.
//
// Every route except login and register requires "Authorization: Bearer [FakeToken]".
type FakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string
	songs     []models.Song
	playlists map[int]*models.Playlist
	nextID    int
	calls     map[string]int
	failures  map[string][]int
	holds     map[string]*hold
	revoked   bool
	Expiry    string
}

// NewFakeAPI starts a fake API seeded with a user and a small song catalogue. It is closed on test cleanup.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:     map[string]string{FakeUsername: FakePassword},
		playlists: make(map[int]*models.Playlist),
		nextID:    1,
		calls:     make(map[string]int),
		failures:  make(map[string][]int),
		holds:     make(map[string]*hold),
		Expiry:    time.Now().Add(24 * time.Hour).UTC().Format("2006-01-02 15:04:05"),
	}
	f.songs = []models.Song{
		{ID: 1, Title: "Blue in Green", ArtistName: "Miles Davis", AlbumName: "Kind of Blue", Year: "1959", Duration: "337", Format: "mp3"},
		{ID: 2, Title: "So What", ArtistName: "Miles Davis", AlbumName: "Kind of Blue", Year: "1959", Duration: "562", Format: "mp3"},
		{ID: 3, Title: "Naima", ArtistName: "John Coltrane", AlbumName: "Giant Steps", Year: "1960", Duration: "261", Format: "flac"},
		{ID: 4, Title: "Blue Train", ArtistName: "John Coltrane", AlbumName: "Blue Train", Year: "1957", Duration: "643", Format: "mp3"},
		{ID: 5, Title: "Take Five", ArtistName: "Dave Brubeck", AlbumName: "Time Out", Year: "1959", Duration: "324", Format: "mp3"},
	}
	for i := range f.songs {
		f.songs[i].File = fmt.Sprintf("https://cdn.test/songs/%d.%s", f.songs[i].ID, f.songs[i].Format)
	}

	mux := http.NewServeMux()
	f.route(mux, RouteRegister, false, f.register)
	f.route(mux, RouteLogin, false, f.login)
	f.route(mux, RouteSongs, true, f.listSongs)
	f.route(mux, RoutePlaylists, true, f.listPlaylists)
	f.route(mux, RoutePlaylist, true, f.getPlaylist)
	f.route(mux, RouteCreate, true, f.createPlaylist)
	f.route(mux, RouteUpdate, true, f.updatePlaylist)
	f.route(mux, RouteDelete, true, f.deletePlaylist)
	f.route(mux, RouteAddSong, true, f.addSong)
	f.route(mux, RouteRemoveSong, true, f.removeSong)
	f.route(mux, RouteUploadCover, true, f.uploadCover)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.mu.Lock()
		held := make([]*hold, 0, len(f.holds))
		for _, h := range f.holds {
			held = append(held, h)
		}
		f.mu.Unlock()
		for _, h := range held {
			h.release()
		}
		f.Server.Close()
	})
	return f
}

func (f *FakeAPI) route(mux *http.ServeMux, pattern string, authed bool, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[pattern]++
		held := f.holds[pattern]
		var status int
		if queued := f.failures[pattern]; len(queued) > 0 {
			status, f.failures[pattern] = queued[0], queued[1:]
		}
		revoked := f.revoked
		f.mu.Unlock()

		if held != nil {
			select {
			case <-held.ch:
			case <-r.Context().Done():
				return
			}
		}

		if authed && (revoked || r.Header.Get("Authorization") != "Bearer "+FakeToken) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "message": "Unauthorized"})
			return
		}
		if status != 0 {
			writeJSON(w, status, map[string]any{"ok": false, "message": http.StatusText(status)})
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

func reject(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "message": msg})
}

// Calls returns how many requests reached route.
func (f *FakeAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// FailNext makes the next request to route answer with status.
func (f *FakeAPI) FailNext(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], status)
}

// Revoke makes every authenticated route answer 401 until [FakeAPI.Restore].
func (f *FakeAPI) Revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

func (f *FakeAPI) Restore() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = false
}

type hold struct {
	ch   chan struct{}
	once sync.Once
}

func (h *hold) release() { h.once.Do(func() { close(h.ch) }) }

// Hold blocks requests to route until the returned release func is called.
func (f *FakeAPI) Hold(route string) (release func()) {
	h := &hold{ch: make(chan struct{})}
	f.mu.Lock()
	f.holds[route] = h
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		if f.holds[route] == h {
			delete(f.holds, route)
		}
		f.mu.Unlock()
		h.release()
	}
}

// SeedPlaylist stores a playlist directly, bypassing the API.
func (f *FakeAPI) SeedPlaylist(title string, songIDs ...int) models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &models.Playlist{ID: f.nextID, Title: title, CreatedAt: "2025-01-01 12:00:00", Songs: []models.Song{}}
	f.nextID++
	for _, id := range songIDs {
		if s, ok := f.song(id); ok {
			p.Songs = append(p.Songs, s)
		}
	}
	f.playlists[p.ID] = p
	return clonePlaylist(p)
}

// Playlist returns the server-side copy of a playlist.
func (f *FakeAPI) Playlist(id int) (models.Playlist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return models.Playlist{}, false
	}
	return clonePlaylist(p), true
}

func clonePlaylist(p *models.Playlist) models.Playlist {
	c := *p
	c.Songs = append([]models.Song{}, p.Songs...)
	return c
}

func (f *FakeAPI) song(id int) (models.Song, bool) {
	for _, s := range f.songs {
		if s.ID == id {
			return s, true
		}
	}
	return models.Song{}, false
}

func (f *FakeAPI) lookup(w http.ResponseWriter, r *http.Request) (*models.Playlist, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		reject(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	p, found := f.playlists[id]
	if !found {
		reject(w, http.StatusNotFound, "Playlist not found")
		return nil, false
	}
	return p, true
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reject(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.users[body.Username]; taken {
		reject(w, http.StatusUnprocessableEntity, "Username has already been taken")
		return
	}
	f.users[body.Username] = body.Password
	ok(w, map[string]any{"username": body.Username})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reject(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, found := f.users[body.Username]; !found || pw != body.Password {
		reject(w, http.StatusUnprocessableEntity, "Incorrect username or password")
		return
	}
	f.revoked = false
	ok(w, models.Credentials{AccessToken: FakeToken, Expiration: f.Expiry})
}

func (f *FakeAPI) listSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title := strings.ToLower(q.Get("filter[title][like]"))
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per-page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	f.mu.Lock()
	var matched []models.Song
	for _, s := range f.songs {
		if title == "" || strings.Contains(strings.ToLower(s.Title), title) {
			matched = append(matched, s)
		}
	}
	f.mu.Unlock()

	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	ok(w, models.Page[models.Song]{Items: append([]models.Song{}, matched[start:end]...)})
}

func (f *FakeAPI) listPlaylists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]models.Playlist, 0, len(f.playlists))
	for _, p := range f.playlists {
		items = append(items, clonePlaylist(p))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	ok(w, models.Page[models.Playlist]{Items: items})
}

func (f *FakeAPI) getPlaylist(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, found := f.lookup(w, r); found {
		ok(w, p)
	}
}

func (f *FakeAPI) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var body models.CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		reject(w, http.StatusUnprocessableEntity, "Title cannot be blank")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.playlists {
		if p.Title == body.Title {
			reject(w, http.StatusUnprocessableEntity, "Title has already been taken")
			return
		}
	}
	p := &models.Playlist{ID: f.nextID, Title: body.Title, Cover: body.Cover, CreatedAt: time.Now().UTC().Format("2006-01-02 15:04:05"), Songs: []models.Song{}}
	f.nextID++
	f.playlists[p.ID] = p
	ok(w, p)
}

func (f *FakeAPI) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body models.UpdatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reject(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, found := f.lookup(w, r)
	if !found {
		return
	}
	if body.Title != nil {
		p.Title = *body.Title
	}
	if body.Cover != nil {
		p.Cover = *body.Cover
	}
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	p.UpdatedAt = &now
	ok(w, p)
}

func (f *FakeAPI) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, found := f.lookup(w, r); found {
		delete(f.playlists, p.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *FakeAPI) addSong(w http.ResponseWriter, r *http.Request) {
	var body models.SongRef
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reject(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, found := f.lookup(w, r)
	if !found {
		return
	}
	s, known := f.song(body.SongID)
	if !known {
		reject(w, http.StatusUnprocessableEntity, "Song not found")
		return
	}
	p.Songs = append(p.Songs, s)
	ok(w, p)
}

func (f *FakeAPI) removeSong(w http.ResponseWriter, r *http.Request) {
	var body models.SongRef
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reject(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, found := f.lookup(w, r)
	if !found {
		return
	}
	for i, s := range p.Songs {
		if s.ID == body.SongID {
			p.Songs = append(p.Songs[:i], p.Songs[i+1:]...)
			ok(w, nil)
			return
		}
	}
	reject(w, http.StatusUnprocessableEntity, "Song is not in playlist")
}

func (f *FakeAPI) uploadCover(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		reject(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()
	ok(w, "https://cdn.test/covers/"+header.Filename)
}

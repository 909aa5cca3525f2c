package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/mutation"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/server"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
	tu "github.com/desertthunder/setlist/internal/testing"
)

type harness struct {
	api     *tu.FakeAPI
	store   *session.Store
	relay   *routes.Relay
	handler http.Handler
}

func setup(t *testing.T) *harness {
	t.Helper()
	api := tu.NewFakeAPI(t)
	store := session.NewStore(session.StoreOpts{})
	relay := &routes.Relay{}
	client := services.NewClient(api.URL,
		services.WithPrepare(services.WithBearer(store)),
		services.WithInspect(services.WithUnauthorizedRedirect(store, relay, nil)),
	)
	store.SetAuthenticator(client.Auth())

	cache := query.NewCache()
	app := New(Deps{
		Session:   store,
		Reader:    query.NewReader(cache, client.Songs(), client.Playlists(), query.DefaultPolicies()),
		Mutations: mutation.NewCoordinator(client.Playlists(), cache),
	})
	return &harness{api: api, store: store, relay: relay, handler: app.Handler()}
}

func (h *harness) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// login signs in through the handler and returns the session cookie it set.
func (h *harness) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodPost, routes.LoginPath, models.LoginRequest{Username: tu.FakeUsername, Password: tu.FakePassword}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

// postCover sends a multipart cover upload with an optional playlist_id field.
func (h *harness) postCover(t *testing.T, cookie *http.Cookie, image []byte, playlistID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "cover.png")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write(image)
	if playlistID != "" {
		mw.WriteField("playlist_id", playlistID)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/playlist/cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
}

func read(t *testing.T, rec *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	if into != nil {
		if err := json.Unmarshal(env.Result, into); err != nil {
			t.Fatalf("invalid result %s: %v", env.Result, err)
		}
	}
	return env
}

func TestAuth(t *testing.T) {
	t.Run("login sets cookie and honours redirect", func(t *testing.T) {
		h := setup(t)
		rec := h.do(t, http.MethodPost, routes.LoginPath+"?redirect=/playlist/3", models.LoginRequest{Username: tu.FakeUsername, Password: tu.FakePassword}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result map[string]string
		read(t, rec, &result)
		if result["redirect"] != "/playlist/3" {
			t.Errorf("redirect = %q, want /playlist/3", result["redirect"])
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Value != tu.FakeToken || !cookies[0].HttpOnly {
			t.Errorf("unexpected cookies %+v", cookies)
		}
		if !h.store.HasToken() {
			t.Error("expected store to hold the token")
		}
	})

	t.Run("invalid input never reaches the server", func(t *testing.T) {
		h := setup(t)
		rec := h.do(t, http.MethodPost, routes.LoginPath, models.LoginRequest{Username: "", Password: "secret123"}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if env := read(t, rec, nil); env.Field != "username" {
			t.Errorf("field = %q, want username", env.Field)
		}
		if h.api.Calls(tu.RouteLogin) != 0 {
			t.Error("expected no login request")
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		h := setup(t)
		rec := h.do(t, http.MethodPost, routes.LoginPath, models.LoginRequest{Username: tu.FakeUsername, Password: "wrongpass"}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("expected no cookie on failed login")
		}
	})

	t.Run("register", func(t *testing.T) {
		h := setup(t)
		body := map[string]string{
			"first_name": "Ada", "last_name": "Lovelace", "username": "ada",
			"password": "engine1", "confirm_password": "engine1",
		}
		rec := h.do(t, http.MethodPost, routes.RegisterPath, body, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		body["confirm_password"] = "engine2"
		rec = h.do(t, http.MethodPost, routes.RegisterPath, body, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("mismatched confirmation status = %d, want 422", rec.Code)
		}
		if h.api.Calls(tu.RouteRegister) != 1 {
			t.Errorf("register calls = %d, want 1", h.api.Calls(tu.RouteRegister))
		}
	})

	t.Run("logout expires cookie", func(t *testing.T) {
		h := setup(t)
		cookie := h.login(t)
		rec := h.do(t, http.MethodPost, "/auth/logout", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Errorf("expected an expired cookie, got %+v", cookies)
		}
		if h.store.HasToken() {
			t.Error("expected store to be cleared")
		}
	})
}

func TestGuard(t *testing.T) {
	h := setup(t)

	t.Run("protected without cookie", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/dashboard", nil, nil)
		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("status = %d, want 307", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/auth/login?redirect=/dashboard" {
			t.Errorf("Location = %q", loc)
		}
		if h.api.Calls(tu.RoutePlaylists) != 0 {
			t.Error("guard should stop the request before any read")
		}
	})

	t.Run("auth page with cookie", func(t *testing.T) {
		cookie := h.login(t)
		rec := h.do(t, http.MethodGet, routes.LoginPath, nil, cookie)
		if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != routes.DashboardPath {
			t.Errorf("got %d %q, want redirect to dashboard", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("root", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/", nil, nil)
		if rec.Header().Get("Location") != routes.LoginPath {
			t.Errorf("Location = %q, want %s", rec.Header().Get("Location"), routes.LoginPath)
		}
	})

	t.Run("write without cookie", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist", models.CreatePlaylistRequest{Title: "Late"}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("login view", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, routes.LoginPath, nil, nil)
		var view struct {
			View string `json:"view"`
		}
		read(t, rec, &view)
		if view.View != "login" {
			t.Errorf("view = %q, want login", view.View)
		}
	})
}

func TestReads(t *testing.T) {
	h := setup(t)
	cookie := h.login(t)
	seeded := h.api.SeedPlaylist("Late Night", 1, 3)

	t.Run("dashboard", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/dashboard", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var d query.Dashboard
		read(t, rec, &d)
		if len(d.Playlists) != 1 || len(d.Songs) != 5 {
			t.Errorf("dashboard = %d playlists, %d songs", len(d.Playlists), len(d.Songs))
		}
	})

	t.Run("songs by title", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/songs?title=blue", nil, cookie)
		var page models.Page[models.Song]
		read(t, rec, &page)
		if len(page.Items) != 2 {
			t.Errorf("got %d songs, want 2", len(page.Items))
		}
	})

	t.Run("playlist detail", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/playlist/"+itoa(seeded.ID), nil, cookie)
		var p models.Playlist
		read(t, rec, &p)
		if p.Title != "Late Night" || len(p.Songs) != 2 {
			t.Errorf("unexpected playlist %+v", p)
		}
	})

	t.Run("cached reads", func(t *testing.T) {
		before := h.api.Calls(tu.RoutePlaylists)
		h.do(t, http.MethodGet, "/playlist", nil, cookie)
		if got := h.api.Calls(tu.RoutePlaylists); got != before {
			t.Errorf("expected collection served from cache, calls %d -> %d", before, got)
		}
	})

	t.Run("missing playlist", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/playlist/999", nil, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/playlist/abc", nil, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		h.api.FailNext(tu.RouteSongs, http.StatusInternalServerError)
		h.api.FailNext(tu.RouteSongs, http.StatusInternalServerError)
		rec := h.do(t, http.MethodGet, "/songs?title=naima", nil, cookie)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})
}

func TestWrites(t *testing.T) {
	h := setup(t)
	cookie := h.login(t)

	var created models.Playlist
	t.Run("create", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist", models.CreatePlaylistRequest{Title: "Morning"}, cookie)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		read(t, rec, &created)
		if created.ID == 0 {
			t.Fatal("expected an id")
		}
	})

	t.Run("create invalid", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist", models.CreatePlaylistRequest{Title: " "}, cookie)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("add by title", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist/"+itoa(created.ID)+"/songs", map[string]string{"song": "take five"}, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		p, _ := h.api.Playlist(created.ID)
		if !p.HasSong(5) {
			t.Errorf("expected song 5 in %+v", p.Songs)
		}
	})

	t.Run("add unknown song", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist/"+itoa(created.ID)+"/songs", map[string]string{"song": "zzzzzz"}, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("remove", func(t *testing.T) {
		rec := h.do(t, http.MethodDelete, "/playlist/"+itoa(created.ID)+"/songs/5", nil, cookie)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		p, _ := h.api.Playlist(created.ID)
		if p.HasSong(5) {
			t.Error("expected song 5 removed")
		}
	})

	t.Run("rename", func(t *testing.T) {
		title := "Evening"
		rec := h.do(t, http.MethodPatch, "/playlist/"+itoa(created.ID), models.UpdatePlaylistRequest{Title: &title}, cookie)
		var p models.Playlist
		read(t, rec, &p)
		if p.Title != "Evening" {
			t.Errorf("title = %q, want Evening", p.Title)
		}
	})

	t.Run("cover", func(t *testing.T) {
		rec := h.postCover(t, cookie, []byte("png"), itoa(created.ID))

		var result struct {
			Cover    string          `json:"cover"`
			Playlist models.Playlist `json:"playlist"`
		}
		read(t, rec, &result)
		if !strings.HasSuffix(result.Cover, "/cover.png") || result.Playlist.Cover != result.Cover {
			t.Errorf("unexpected cover result %+v", result)
		}
	})

	t.Run("cover rejections", func(t *testing.T) {
		tests := []struct {
			name       string
			image      []byte
			playlistID string
			status     int
			field      string
		}{
			{name: "oversized image", image: bytes.Repeat([]byte{0x89}, 12<<20), playlistID: itoa(created.ID), status: http.StatusRequestEntityTooLarge, field: "image"},
			{name: "bad playlist id", image: []byte("png"), playlistID: "abc", status: http.StatusBadRequest, field: "playlist_id"},
			{name: "negative playlist id", image: []byte("png"), playlistID: "-4", status: http.StatusBadRequest, field: "playlist_id"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				before := h.api.Calls(tu.RouteUploadCover)
				rec := h.postCover(t, cookie, tt.image, tt.playlistID)
				if rec.Code != tt.status {
					t.Fatalf("status = %d, want %d", rec.Code, tt.status)
				}
				if env := read(t, rec, nil); env.Field != tt.field {
					t.Errorf("field = %q, want %q", env.Field, tt.field)
				}
				if h.api.Calls(tu.RouteUploadCover) != before {
					t.Error("rejected cover should never be uploaded")
				}
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := h.do(t, http.MethodDelete, "/playlist/"+itoa(created.ID), nil, cookie)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if _, ok := h.api.Playlist(created.ID); ok {
			t.Error("expected playlist gone")
		}
	})
}

func TestRevokedSession(t *testing.T) {
	h := setup(t)
	cookie := h.login(t)
	h.api.Revoke()

	t.Run("navigation redirects to login", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/playlist", nil, cookie)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != routes.LoginPath {
			t.Errorf("got %d %q, want 303 to login", rec.Code, rec.Header().Get("Location"))
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Errorf("expected cookie cleared, got %+v", cookies)
		}
		if h.store.HasToken() {
			t.Error("expected store cleared")
		}
		if h.relay.Last() != routes.LoginPath {
			t.Errorf("relay last = %q", h.relay.Last())
		}
	})

	t.Run("write answers 401", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/playlist", models.CreatePlaylistRequest{Title: "Never"}, cookie)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestExpiredCookieStillReachesHandler(t *testing.T) {
	h := setup(t)
	stale := session.NewCookie("stale", time.Now().Add(time.Hour), false)
	rec := h.do(t, http.MethodGet, "/songs", nil, stale)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303 after the server rejects the missing bearer", rec.Code)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestUnguardedRoot(t *testing.T) {
	api := tu.NewFakeAPI(t)
	store := session.NewStore(session.StoreOpts{})
	client := services.NewClient(api.URL)
	store.SetAuthenticator(client.Auth())

	r := server.NewBasicRouter()
	New(Deps{Session: store}).Register(r)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	t.Run("signed out", func(t *testing.T) {
		rec := get()
		if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != routes.LoginPath {
			t.Errorf("got %d %q, want 307 to %s", rec.Code, rec.Header().Get("Location"), routes.LoginPath)
		}
	})

	t.Run("signed in", func(t *testing.T) {
		if !store.Login(context.Background(), models.LoginRequest{Username: tu.FakeUsername, Password: tu.FakePassword}) {
			t.Fatal("login failed")
		}
		rec := get()
		if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != routes.DashboardPath {
			t.Errorf("got %d %q, want 307 to %s", rec.Code, rec.Header().Get("Location"), routes.DashboardPath)
		}
	})
}

func TestFailTimeout(t *testing.T) {
	a := New(Deps{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, routes.DashboardPath, nil)
	a.fail(rec, req, &services.TransportError{Method: http.MethodGet, Path: "/playlist", Err: context.DeadlineExceeded})

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	if env := read(t, rec, nil); env.Message != shared.ErrTimeout.Error() {
		t.Errorf("message = %q", env.Message)
	}
}

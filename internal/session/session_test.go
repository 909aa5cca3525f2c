package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/services"
	tu "github.com/desertthunder/setlist/internal/testing"
)

type stubAuth struct {
	creds *models.Credentials
	err   error
	calls int
}

func (s *stubAuth) Login(context.Context, models.LoginRequest) (*models.Credentials, error) {
	s.calls++
	return s.creds, s.err
}

func (s *stubAuth) Register(context.Context, models.RegisterRequest) error {
	s.calls++
	return s.err
}

var validLogin = models.LoginRequest{Username: tu.FakeUsername, Password: tu.FakePassword}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Initial State From Persister", func(t *testing.T) {
		p := &MemoryPersister{}
		if s := NewStore(StoreOpts{Persister: p}); s.Authenticated() || s.HasToken() {
			t.Error("expected unauthenticated store with empty persister")
		}

		p.Save("persisted", time.Now().Add(time.Hour))
		s := NewStore(StoreOpts{Persister: p})
		if !s.Authenticated() || !s.HasToken() {
			t.Error("expected authenticated store when a token is persisted")
		}
	})

	t.Run("Login Against API", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		notes := &tu.Notes{}
		p := &MemoryPersister{}
		s := NewStore(StoreOpts{Auth: services.NewClient(api.URL).Auth(), Persister: p, Notifier: notes})

		if !s.Login(ctx, validLogin) {
			t.Fatalf("expected login to succeed, notes: %v", notes.Errors)
		}
		if !s.Authenticated() {
			t.Error("expected authenticated after login")
		}
		tok := s.Token()
		if tok == nil || tok.AccessToken != tu.FakeToken {
			t.Fatalf("expected token, got %+v", tok)
		}
		if saved, _, ok, _ := p.Load(); !ok || saved != tu.FakeToken {
			t.Error("expected token to be persisted")
		}
		if succ, _ := notes.Counts(); succ != 1 {
			t.Errorf("expected one success notification, got %d", succ)
		}
	})

	t.Run("Login Failure Is A Return Value", func(t *testing.T) {
		tc := []struct {
			name  string
			auth  *stubAuth
			req   models.LoginRequest
			calls int
		}{
			{name: "invalid input skips network", auth: &stubAuth{}, req: models.LoginRequest{Username: "a", Password: "1"}, calls: 0},
			{name: "transport failure", auth: &stubAuth{err: &services.TransportError{Err: errors.New("refused")}}, req: validLogin, calls: 1},
			{name: "missing token", auth: &stubAuth{creds: &models.Credentials{Expiration: "2030-01-01 00:00:00"}}, req: validLogin, calls: 1},
			{name: "missing expiry", auth: &stubAuth{creds: &models.Credentials{AccessToken: "t"}}, req: validLogin, calls: 1},
			{name: "unparseable expiry", auth: &stubAuth{creds: &models.Credentials{AccessToken: "t", Expiration: "soon"}}, req: validLogin, calls: 1},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				notes := &tu.Notes{}
				p := &MemoryPersister{}
				s := NewStore(StoreOpts{Auth: tt.auth, Persister: p, Notifier: notes})

				if s.Login(ctx, tt.req) {
					t.Fatal("expected login to fail")
				}
				if s.Authenticated() || s.Token() != nil {
					t.Error("expected store to stay unauthenticated")
				}
				if _, _, ok, _ := p.Load(); ok {
					t.Error("nothing should be persisted")
				}
				if tt.auth.calls != tt.calls {
					t.Errorf("expected %d auth calls, got %d", tt.calls, tt.auth.calls)
				}
				if _, errs := notes.Counts(); errs != 1 {
					t.Errorf("expected one error notification, got %d", errs)
				}
			})
		}
	})

	t.Run("Register Does Not Authenticate", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		s := NewStore(StoreOpts{Auth: services.NewClient(api.URL).Auth()})

		ok := s.Register(ctx, models.RegisterRequest{
			FirstName: "Nina", LastName: "Simone", Username: "nina", Password: "secret1", ConfirmPassword: "secret1",
		})
		if !ok {
			t.Fatal("expected registration to succeed")
		}
		if s.Authenticated() || s.HasToken() {
			t.Error("register must not authenticate")
		}
		if !s.Login(ctx, models.LoginRequest{Username: "nina", Password: "secret1"}) {
			t.Error("expected separate login to succeed")
		}
	})

	t.Run("Register Validation", func(t *testing.T) {
		auth := &stubAuth{}
		s := NewStore(StoreOpts{Auth: auth})
		if s.Register(ctx, models.RegisterRequest{Username: "x"}) {
			t.Error("expected invalid registration to fail")
		}
		if auth.calls != 0 {
			t.Error("validation failure must not reach the network")
		}
	})

	t.Run("Logout", func(t *testing.T) {
		p := &MemoryPersister{}
		p.Save("tok", time.Now().Add(time.Hour))
		s := NewStore(StoreOpts{Persister: p})

		s.Logout()
		s.Logout()

		if s.Authenticated() || s.Token() != nil {
			t.Error("expected cleared store")
		}
		if _, _, ok, _ := p.Load(); ok {
			t.Error("expected persisted token to be cleared")
		}
	})

	t.Run("Expired Token", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		clock := tu.NewClock(now)
		auth := &stubAuth{creds: &models.Credentials{AccessToken: "t", Expiration: "2025-01-01 01:00:00"}}
		s := NewStore(StoreOpts{Auth: auth, Now: clock.Now})

		if !s.Login(ctx, validLogin) {
			t.Fatal("expected login to succeed")
		}
		if s.Token() == nil {
			t.Fatal("expected token before expiry")
		}

		clock.Advance(2 * time.Hour)
		if s.Token() != nil {
			t.Error("expected no token after expiry")
		}
		if !s.HasToken() {
			t.Error("HasToken does not check expiry")
		}
	})

	t.Run("Gateway 401 Clears Store", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		nav := &tu.Navigations{}
		s := NewStore(StoreOpts{})
		client := services.NewClient(api.URL,
			services.WithPrepare(services.WithBearer(s)),
			services.WithInspect(services.WithUnauthorizedRedirect(s, nav, nil)),
		)
		s.SetAuthenticator(client.Auth())

		if !s.Login(ctx, validLogin) {
			t.Fatal("expected login to succeed")
		}
		if _, err := client.Playlists().List(ctx); err != nil {
			t.Fatalf("expected authorized call to succeed, got %v", err)
		}

		api.Revoke()
		_, err := client.Playlists().List(ctx)
		if !errors.Is(err, services.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if s.HasToken() || s.Authenticated() {
			t.Error("expected store cleared after 401")
		}
		if paths := nav.Paths(); len(paths) != 1 || paths[0] != "/auth/login" {
			t.Errorf("expected navigation to login, got %v", paths)
		}
	})
}

func TestCookie(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("NewCookie", func(t *testing.T) {
		c := NewCookie("tok", expiry, true)
		if c.Name != "access_token" || c.Value != "tok" || c.Path != "/" {
			t.Errorf("unexpected cookie %+v", c)
		}
		if !c.Expires.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, c.Expires)
		}
		if !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Error("expected secure same-site strict cookie in production")
		}
		if NewCookie("tok", expiry, false).Secure {
			t.Error("cookie should not be secure outside production")
		}
	})

	t.Run("FromRequest", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		if FromRequest(req) != "" {
			t.Error("expected empty token without cookie")
		}
		req.AddCookie(NewCookie("tok", expiry, false))
		if FromRequest(req) != "tok" {
			t.Error("expected token from cookie")
		}
	})

	t.Run("ExpiredCookie", func(t *testing.T) {
		if c := ExpiredCookie(false); c.MaxAge >= 0 || c.Name != CookieName {
			t.Errorf("expected deleting cookie, got %+v", c)
		}
	})
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/mutation"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	RegisterView
	DashboardView
	PlaylistView
	SongsView
)

// songsPageSize is how many songs the browser loads.
const songsPageSize = 50

// Deps are the shared collaborators the TUI reads and writes through.
type Deps struct {
	Session   *session.Store
	Reader    *query.Reader
	Mutations *mutation.Coordinator
	Logger    *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	start  string
	view   ViewState
	path   string
	width  int
	height int

	returnTo   string
	form       form
	prompt     *form
	confirming bool
	loading    bool

	playlists list.Model
	songs     list.Model
	tracks    list.Model
	playlist  *models.Playlist
	addTo     int

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a TUI model that will open start (through the guard) on Init.
func NewModel(ctx context.Context, deps Deps, start string) *Model {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if start == "" {
		start = routes.RootPath
	}
	return &Model{
		ctx:       ctx,
		deps:      deps,
		start:     start,
		width:     80,
		height:    24,
		playlists: newList("Playlists", 76, 16),
		songs:     newList("Songs", 76, 16),
		tracks:    newList("Playlist", 76, 16),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Run starts the program and routes relay navigations into it until the program exits.
func Run(ctx context.Context, deps Deps, relay *routes.Relay, start string) error {
	m := NewModel(ctx, deps, start)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	relay.Set(func(path string) { p.Send(NavigateMsg(path)) })
	defer relay.Set(nil)

	_, err := p.Run()
	return err
}

// Init navigates to the start path.
func (m *Model) Init() tea.Cmd {
	return m.Navigate(m.start)
}

// ViewState reports the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Path reports the path of the active view.
func (m *Model) Path() string { return m.path }

// Navigate applies the route guard to path, switches to the resulting view and returns the command that loads it.
func (m *Model) Navigate(path string) tea.Cmd {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: routes.DashboardPath}
	}

	d := routes.Decide(u.Path, m.deps.Session.HasToken())
	if d.Action != routes.Allow {
		m.deps.Logger.Debug("navigation redirected", "from", u.Path, "to", d.Location, "action", d.Action)
		if u, err = url.Parse(d.Location); err != nil {
			return nil
		}
	}

	m.path = u.Path
	m.confirming = false
	m.prompt = nil
	m.err = nil
	m.status = ""

	switch {
	case u.Path == routes.LoginPath:
		m.view = LoginView
		m.returnTo = routes.ReturnTarget(u.Query())
		m.form = newForm(loginFields)
		return nil
	case u.Path == routes.RegisterPath:
		m.view = RegisterView
		m.form = newForm(registerFields)
		return nil
	case strings.HasPrefix(u.Path, routes.SongsPath):
		m.view = SongsView
		return m.load(m.fetchSongs())
	case strings.HasPrefix(u.Path, routes.PlaylistPath+"/"):
		id, err := strconv.Atoi(strings.TrimPrefix(u.Path, routes.PlaylistPath+"/"))
		if err != nil || id <= 0 {
			return m.Navigate(routes.DashboardPath)
		}
		m.view = PlaylistView
		return m.load(m.fetchPlaylist(id))
	default:
		m.view = DashboardView
		m.path = routes.DashboardPath
		m.addTo = 0
		return m.load(m.fetchDashboard())
	}
}

func (m *Model) load(cmd tea.Cmd) tea.Cmd {
	m.loading = true
	return cmd
}

func (m *Model) fetchDashboard() tea.Cmd {
	return func() tea.Msg {
		d, err := m.deps.Reader.Dashboard(m.ctx)
		return dashboardLoadedMsg(d, err)
	}
}

func (m *Model) fetchPlaylist(id int) tea.Cmd {
	return func() tea.Msg {
		p, err := m.deps.Reader.Playlist(m.ctx, id)
		return playlistLoadedMsg(p, err)
	}
}

func (m *Model) fetchSongs() tea.Cmd {
	return func() tea.Msg {
		songs, err := m.deps.Reader.Songs(m.ctx, models.SongFilters{PerPage: songsPageSize})
		return songsLoadedMsg(songs, err)
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, l := range []*list.Model{&m.playlists, &m.songs, &m.tracks} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKeys(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgNavigate:
		return m, m.Navigate(msg.data.(string))

	case MsgDashboardLoaded:
		res := msg.data.(dashboardResult)
		if m.view != DashboardView {
			return m, nil
		}
		m.loading = false
		if res.err != nil {
			return m, m.fail(res.err)
		}
		return m, m.playlists.SetItems(playlistItems(res.dashboard.Playlists))

	case MsgPlaylistLoaded:
		res := msg.data.(playlistResult)
		if m.view != PlaylistView {
			return m, nil
		}
		m.loading = false
		if res.err != nil {
			return m, m.fail(res.err)
		}
		m.playlist = res.playlist
		m.tracks.Title = res.playlist.Title
		return m, m.tracks.SetItems(songItems(res.playlist.Songs))

	case MsgSongsLoaded:
		res := msg.data.(songsResult)
		if m.view != SongsView {
			return m, nil
		}
		m.loading = false
		if res.err != nil {
			return m, m.fail(res.err)
		}
		m.songs.Title = "Songs"
		if m.addTo > 0 {
			m.songs.Title = fmt.Sprintf("Add songs to playlist %d", m.addTo)
		}
		return m, m.songs.SetItems(songItems(res.songs))

	case MsgAuthDone:
		res := msg.data.(authResult)
		m.loading = false
		if !res.ok {
			m.err = errors.New(res.fail)
			return m, nil
		}
		cmd := m.Navigate(res.next)
		if res.next == routes.LoginPath {
			m.status = "Account created, sign in to continue"
		}
		return m, cmd

	case MsgMutationDone:
		res := msg.data.(mutationResult)
		m.loading = false
		if res.err != nil {
			return m, m.fail(res.err)
		}
		next := res.next
		if next == "" {
			next = m.path
		}
		cmd := m.Navigate(next)
		m.status = res.status
		return m, cmd
	}
	return m, nil
}

// fail records err, sending the user to the login view when the session was rejected.
func (m *Model) fail(err error) tea.Cmd {
	if errors.Is(err, services.ErrUnauthorized) {
		cmd := m.Navigate(routes.LoginPath)
		m.err = errors.New("session expired, sign in again")
		return cmd
	}
	m.err = err
	return nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		return m.handlePromptKeys(msg)
	}
	if m.confirming {
		return m.handleConfirmKeys(msg)
	}

	switch m.view {
	case LoginView, RegisterView:
		return m.handleFormKeys(msg)
	case DashboardView:
		return m.handleDashboardKeys(msg)
	case PlaylistView:
		return m.handlePlaylistKeys(msg)
	case SongsView:
		return m.handleSongsKeys(msg)
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.register) && m.view == LoginView:
		return m, m.Navigate(routes.RegisterPath)
	case key.Matches(msg, m.keys.back) && m.view == RegisterView:
		return m, m.Navigate(routes.LoginPath)
	case key.Matches(msg, m.keys.next):
		m.form.next()
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.form.prev()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !m.form.last() {
			m.form.next()
			return m, nil
		}
		return m, m.submitForm()
	}
	return m, m.form.update(msg)
}

func (m *Model) submitForm() tea.Cmd {
	store, ctx := m.deps.Session, m.ctx

	if m.view == LoginView {
		req := models.LoginRequest{Username: m.form.value("username"), Password: m.form.value("password")}
		if err := req.Validate(); err != nil {
			m.err = err
			return nil
		}
		next := m.returnTo
		m.loading = true
		return func() tea.Msg {
			if !store.Login(ctx, req) {
				return authDoneMsg(authResult{fail: "login failed, check your username and password"})
			}
			return authDoneMsg(authResult{ok: true, next: next})
		}
	}

	req := models.RegisterRequest{
		FirstName:       m.form.value("first_name"),
		LastName:        m.form.value("last_name"),
		Username:        m.form.value("username"),
		Password:        m.form.value("password"),
		ConfirmPassword: m.form.value("confirm_password"),
	}
	if err := req.Validate(); err != nil {
		m.err = err
		return nil
	}
	m.loading = true
	return func() tea.Msg {
		if !store.Register(ctx, req) {
			return authDoneMsg(authResult{fail: "registration failed"})
		}
		return authDoneMsg(authResult{ok: true, next: routes.LoginPath})
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlists.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if p, ok := m.selectedPlaylist(); ok {
			return m, m.Navigate(fmt.Sprintf("%s/%d", routes.PlaylistPath, p.ID))
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		f := newForm(titleFields)
		m.prompt = &f
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if _, ok := m.selectedPlaylist(); ok {
			m.confirming = true
		}
		return m, nil
	case key.Matches(msg, m.keys.songs):
		m.addTo = 0
		return m, m.Navigate(routes.SongsPath)
	case key.Matches(msg, m.keys.refresh):
		m.deps.Reader.Cache().Invalidate(query.PlaylistsPattern(), query.SongsPattern())
		return m, m.Navigate(routes.DashboardPath)
	case key.Matches(msg, m.keys.logout):
		m.deps.Session.Logout()
		return m, m.Navigate(routes.LoginPath)
	}
	return m.updateLists(msg)
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tracks.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.Navigate(routes.DashboardPath)
	case key.Matches(msg, m.keys.add):
		if m.playlist != nil {
			m.addTo = m.playlist.ID
			return m, m.Navigate(routes.SongsPath)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		item, ok := m.tracks.SelectedItem().(songItem)
		if !ok || m.playlist == nil {
			return m, nil
		}
		return m, m.mutate(func() (string, string, error) {
			err := m.deps.Mutations.RemoveSong(m.ctx, m.playlist.ID, item.song.ID)
			return fmt.Sprintf("Removed %s", item.song.Title), "", err
		})
	}
	return m.updateLists(msg)
}

func (m *Model) handleSongsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.songs.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.addTo > 0 {
			return m, m.Navigate(fmt.Sprintf("%s/%d", routes.PlaylistPath, m.addTo))
		}
		return m, m.Navigate(routes.DashboardPath)
	case key.Matches(msg, m.keys.enter):
		item, ok := m.songs.SelectedItem().(songItem)
		if !ok || m.addTo == 0 {
			return m, nil
		}
		target := m.addTo
		return m, m.mutate(func() (string, string, error) {
			_, err := m.deps.Mutations.AddSong(m.ctx, target, item.song.ID)
			return fmt.Sprintf("Added %s", item.song.Title), m.path, err
		})
	}
	return m.updateLists(msg)
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.prompt = nil
		return m, nil
	case key.Matches(msg, m.keys.enter):
		req := models.CreatePlaylistRequest{Title: m.prompt.value("title")}
		if err := req.Validate(); err != nil {
			m.err = err
			return m, nil
		}
		m.prompt = nil
		return m, m.mutate(func() (string, string, error) {
			p, err := m.deps.Mutations.CreatePlaylist(m.ctx, req)
			if err != nil {
				return "", "", err
			}
			return fmt.Sprintf("Created %s", p.Title), fmt.Sprintf("%s/%d", routes.PlaylistPath, p.ID), nil
		})
	}
	return m, m.prompt.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.confirming = false
		p, ok := m.selectedPlaylist()
		if !ok {
			return m, nil
		}
		return m, m.mutate(func() (string, string, error) {
			err := m.deps.Mutations.DeletePlaylist(m.ctx, p.ID)
			return fmt.Sprintf("Deleted %s", p.Title), routes.DashboardPath, err
		})
	case key.Matches(msg, m.keys.no):
		m.confirming = false
	}
	return m, nil
}

// mutate runs call off the update loop and reports through [MsgMutationDone].
func (m *Model) mutate(call func() (status, next string, err error)) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		status, next, err := call()
		return mutationDoneMsg(mutationResult{status: status, next: next, err: err})
	}
}

func (m *Model) selectedPlaylist() (models.Playlist, bool) {
	item, ok := m.playlists.SelectedItem().(playlistItem)
	return item.playlist, ok
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case DashboardView:
		m.playlists, cmd = m.playlists.Update(msg)
	case PlaylistView:
		m.tracks, cmd = m.tracks.Update(msg)
	case SongsView:
		m.songs, cmd = m.songs.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	var keys []key.Binding

	switch m.view {
	case LoginView:
		body = styles.title.Render("Sign in") + "\n" + m.form.view()
		keys = []key.Binding{m.keys.next, m.keys.enter, m.keys.register}
	case RegisterView:
		body = styles.title.Render("Create an account") + "\n" + m.form.view()
		keys = []key.Binding{m.keys.next, m.keys.enter, m.keys.back}
	case DashboardView:
		body = m.playlists.View()
		keys = []key.Binding{m.keys.enter, m.keys.create, m.keys.remove, m.keys.songs, m.keys.refresh, m.keys.logout, m.keys.quit}
	case PlaylistView:
		body = m.tracks.View()
		keys = []key.Binding{m.keys.add, m.keys.remove, m.keys.back, m.keys.quit}
	case SongsView:
		body = m.songs.View()
		keys = []key.Binding{m.keys.back, m.keys.quit}
		if m.addTo > 0 {
			keys = append([]key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add to playlist"))}, keys...)
		}
	}

	switch {
	case m.prompt != nil:
		body = styles.title.Render("New playlist") + "\n" + m.prompt.view()
		keys = []key.Binding{m.keys.enter, m.keys.back}
	case m.confirming:
		p, _ := m.selectedPlaylist()
		body = styles.warn.Render(fmt.Sprintf("Delete '%s'?", p.Title))
		keys = []key.Binding{m.keys.yes, m.keys.no}
	}

	var footer strings.Builder
	if m.loading {
		footer.WriteString(styles.help.Render("Loading..."))
		footer.WriteString("\n")
	}
	if m.err != nil {
		footer.WriteString(styles.err.Render("Error: " + m.err.Error()))
		footer.WriteString("\n")
	} else if m.status != "" {
		footer.WriteString(styles.ok.Render("✓ " + m.status))
		footer.WriteString("\n")
	}

	return fmt.Sprintf("%s\n%s\n%s", body, footer.String(), m.help.ShortHelpView(keys))
}

package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/query"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNavigate MsgKind = iota
	MsgDashboardLoaded
	MsgPlaylistLoaded
	MsgSongsLoaded
	MsgAuthDone
	MsgMutationDone
)

type dashboardResult struct {
	dashboard *query.Dashboard
	err       error
}

type playlistResult struct {
	playlist *models.Playlist
	err      error
}

type songsResult struct {
	songs []models.Song
	err   error
}

type authResult struct {
	ok   bool
	next string
	fail string
}

type mutationResult struct {
	status string
	next   string
	err    error
}

// NavigateMsg asks the model to move to path. It is what the routes.Relay sends from outside the program.
func NavigateMsg(path string) Msg {
	return Msg{kind: MsgNavigate, data: path}
}

func dashboardLoadedMsg(d *query.Dashboard, err error) Msg {
	return Msg{kind: MsgDashboardLoaded, data: dashboardResult{d, err}}
}

func playlistLoadedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: playlistResult{p, err}}
}

func songsLoadedMsg(songs []models.Song, err error) Msg {
	return Msg{kind: MsgSongsLoaded, data: songsResult{songs, err}}
}

func authDoneMsg(r authResult) Msg {
	return Msg{kind: MsgAuthDone, data: r}
}

func mutationDoneMsg(r mutationResult) Msg {
	return Msg{kind: MsgMutationDone, data: r}
}

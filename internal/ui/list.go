package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = songItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d songs", len(i.playlist.Songs))
	if i.playlist.CreatedAt != "" {
		desc = fmt.Sprintf("%s • created %s", desc, shared.FormatDate(i.playlist.CreatedAt))
	}
	return desc
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.ArtistName }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	desc := i.song.ArtistName
	if i.song.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.song.AlbumName)
	}
	return fmt.Sprintf("%s • %s", desc, shared.FormatDuration(i.song.Duration))
}

func newList(title string, width, height int) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

func playlistItems(ps []models.Playlist) []list.Item {
	items := make([]list.Item, len(ps))
	for i, p := range ps {
		items[i] = playlistItem{playlist: p}
	}
	return items
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s}
	}
	return items
}

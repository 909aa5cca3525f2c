package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/setlist/internal/models"
)

// PlaylistsAPI reads and writes playlists. Writes are delegated to the server and never applied locally.
type PlaylistsAPI struct{ c *Client }

func (c *Client) Playlists() PlaylistsAPI { return PlaylistsAPI{c} }

func playlistPath(id int) string { return fmt.Sprintf("/playlist/%d", id) }

func (p PlaylistsAPI) List(ctx context.Context) ([]models.Playlist, error) {
	var page models.Page[models.Playlist]
	if err := p.c.Do(ctx, http.MethodGet, "/playlist", nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (p PlaylistsAPI) Get(ctx context.Context, id int) (*models.Playlist, error) {
	var pl models.Playlist
	if err := p.c.Do(ctx, http.MethodGet, playlistPath(id), nil, nil, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (p PlaylistsAPI) Create(ctx context.Context, req models.CreatePlaylistRequest) (*models.Playlist, error) {
	var pl models.Playlist
	if err := p.c.Do(ctx, http.MethodPost, "/playlist", nil, req, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (p PlaylistsAPI) Update(ctx context.Context, id int, req models.UpdatePlaylistRequest) (*models.Playlist, error) {
	var pl models.Playlist
	if err := p.c.Do(ctx, http.MethodPatch, playlistPath(id), nil, req, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (p PlaylistsAPI) Delete(ctx context.Context, id int) error {
	return p.c.Do(ctx, http.MethodDelete, playlistPath(id), nil, nil, nil)
}

// AddSong appends songID to the playlist and returns the playlist as the server now has it.
func (p PlaylistsAPI) AddSong(ctx context.Context, playlistID, songID int) (*models.Playlist, error) {
	var pl models.Playlist
	path := fmt.Sprintf("/playlist/add-song/%d", playlistID)
	if err := p.c.Do(ctx, http.MethodPost, path, nil, models.SongRef{SongID: songID}, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// RemoveSong sends the song reference as a DELETE body.
func (p PlaylistsAPI) RemoveSong(ctx context.Context, playlistID, songID int) error {
	path := fmt.Sprintf("/playlist/remove-song/%d", playlistID)
	return p.c.Do(ctx, http.MethodDelete, path, nil, models.SongRef{SongID: songID}, nil)
}

// UploadCover uploads an image and returns the URL the server stored it under.
func (p PlaylistsAPI) UploadCover(ctx context.Context, filename string, image io.Reader) (string, error) {
	var url string
	if err := p.c.Upload(ctx, "/uploader/playlist-cover", "image", filename, image, &url); err != nil {
		return "", err
	}
	return url, nil
}

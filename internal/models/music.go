package models

import (
	"net/url"
	"strconv"
)

// Song is read-only track metadata. Duration is seconds encoded as a decimal string.
type Song struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	Year       string `json:"year"`
	Duration   string `json:"duration"`
	File       string `json:"file"`
	Format     string `json:"format"`
}

// Playlist holds its songs in the order the server returned them.
type Playlist struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Cover     string  `json:"cover,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
	Songs     []Song  `json:"songs"`
}

// HasSong reports whether the playlist already contains songID.
func (p Playlist) HasSong(songID int) bool {
	for _, s := range p.Songs {
		if s.ID == songID {
			return true
		}
	}
	return false
}

// Envelope is the {ok, result} wrapper around every API response.
type Envelope[T any] struct {
	OK      bool   `json:"ok"`
	Result  T      `json:"result"`
	Message string `json:"message,omitempty"`
}

// Page is a paginated collection.
type Page[T any] struct {
	Items []T `json:"items"`
}

// Credentials is the login result. The expiry key keeps the server's spelling.
type Credentials struct {
	AccessToken string `json:"access_token"`
	Expiration  string `json:"access_token_expration"`
}

// SongFilters narrows a song listing. Zero values are omitted from the query.
type SongFilters struct {
	Title   string
	Page    int
	PerPage int
}

// Values encodes the filters the way the songs endpoint expects them.
func (f SongFilters) Values() url.Values {
	v := url.Values{}
	if f.Title != "" {
		v.Set("filter[title][like]", f.Title)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		v.Set("per-page", strconv.Itoa(f.PerPage))
	}
	return v
}

// SongRef is the body of the add-song and remove-song calls.
type SongRef struct {
	SongID int `json:"song_id"`
}

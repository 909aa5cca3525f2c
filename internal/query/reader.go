package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// Fetch is the typed form of [Cache.Get].
func Fetch[T any](ctx context.Context, c *Cache, key Key, policy Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Get(ctx, key, policy, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}

// Policies holds the freshness windows per resource.
type Policies struct {
	Songs     Policy
	Playlists Policy
	Playlist  Policy
}

// DefaultPolicies: songs 5m stale / 10m expiry, playlists 2m / 5m, playlist detail always stale / 5m.
func DefaultPolicies() Policies {
	return Policies{
		Songs:     Policy{Stale: 5 * time.Minute, Expiry: 10 * time.Minute, Retries: 1},
		Playlists: Policy{Stale: 2 * time.Minute, Expiry: 5 * time.Minute, Retries: 1},
		Playlist:  Policy{Stale: 0, Expiry: 5 * time.Minute, Retries: 1},
	}
}

// PoliciesFromConfig builds policies from the [cache] config section.
func PoliciesFromConfig(cfg shared.CacheConfig) Policies {
	return Policies{
		Songs:     Policy{Stale: cfg.SongsStale, Expiry: cfg.SongsExpiry, Retries: 1},
		Playlists: Policy{Stale: cfg.PlaylistsStale, Expiry: cfg.PlaylistsExpiry, Retries: 1},
		Playlist:  Policy{Stale: cfg.PlaylistStale, Expiry: cfg.PlaylistExpiry, Retries: 1},
	}
}

// SongSource lists songs from the server.
type SongSource interface {
	List(ctx context.Context, filters models.SongFilters) ([]models.Song, error)
}

// PlaylistSource reads playlists from the server.
type PlaylistSource interface {
	List(ctx context.Context) ([]models.Playlist, error)
	Get(ctx context.Context, id int) (*models.Playlist, error)
}

// Reader is the read side used by every front-end. All reads go through the cache.
type Reader struct {
	cache     *Cache
	songs     SongSource
	playlists PlaylistSource
	policies  Policies
}

func NewReader(cache *Cache, songs SongSource, playlists PlaylistSource, policies Policies) *Reader {
	return &Reader{cache: cache, songs: songs, playlists: playlists, policies: policies}
}

// Cache returns the underlying cache.
func (r *Reader) Cache() *Cache { return r.cache }

// SongsKey is the key a song listing is cached under.
func SongsKey(filters models.SongFilters) Key { return NewKey(ResourceSongs, filters.Values()) }

func (r *Reader) Songs(ctx context.Context, filters models.SongFilters) ([]models.Song, error) {
	return Fetch(ctx, r.cache, SongsKey(filters), r.policies.Songs, func(ctx context.Context) ([]models.Song, error) {
		return r.songs.List(ctx, filters)
	})
}

func (r *Reader) Playlists(ctx context.Context) ([]models.Playlist, error) {
	return Fetch(ctx, r.cache, PlaylistsKey(), r.policies.Playlists, r.playlists.List)
}

func (r *Reader) Playlist(ctx context.Context, id int) (*models.Playlist, error) {
	return Fetch(ctx, r.cache, PlaylistKey(id), r.policies.Playlist, func(ctx context.Context) (*models.Playlist, error) {
		return r.playlists.Get(ctx, id)
	})
}

// DashboardSongs is how many songs the dashboard shows.
const DashboardSongs = 10

// Dashboard is the signed-in landing view.
type Dashboard struct {
	Playlists []models.Playlist `json:"playlists"`
	Songs     []models.Song     `json:"songs"`
}

// Dashboard reads the playlist collection and the first page of songs concurrently.
func (r *Reader) Dashboard(ctx context.Context) (*Dashboard, error) {
	type songsResult struct {
		songs []models.Song
		err   error
	}
	ch := make(chan songsResult, 1)
	go func() {
		songs, err := r.Songs(ctx, models.SongFilters{PerPage: DashboardSongs})
		ch <- songsResult{songs, err}
	}()

	playlists, err := r.Playlists(ctx)
	res := <-ch
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return &Dashboard{Playlists: playlists, Songs: res.songs}, nil
}

type songTitles []models.Song

func (s songTitles) String(i int) string { return s[i].Title + " " + s[i].ArtistName }
func (s songTitles) Len() int            { return len(s) }

// SongIDPrefix marks a song reference as an explicit id, as in "id:1999".
const SongIDPrefix = "id:"

// ExplicitSongID parses a reference written with [SongIDPrefix]. ok is false when term has no prefix.
func ExplicitSongID(term string) (id int, ok bool, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(term), SongIDPrefix)
	if !ok {
		return 0, false, nil
	}
	id, err = strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || id <= 0 {
		return 0, true, fmt.Errorf("%w: %q is not a song id", shared.ErrInvalidArgument, term)
	}
	return id, true, nil
}

// ResolveSong finds the song best matching term.
//
// A reference with [SongIDPrefix] is taken as an id. Otherwise a song whose title equals term wins,
// then a bare number is taken as an id, then titles are ranked by fuzzy score.
func (r *Reader) ResolveSong(ctx context.Context, term string) (*models.Song, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty song reference", shared.ErrMissingArgument)
	}
	if id, ok, err := ExplicitSongID(term); ok {
		if err != nil {
			return nil, err
		}
		return &models.Song{ID: id}, nil
	}

	songs, err := r.Songs(ctx, models.SongFilters{Title: term, PerPage: 50})
	if err != nil {
		return nil, err
	}
	for i := range songs {
		if strings.EqualFold(songs[i].Title, term) {
			return &songs[i], nil
		}
	}
	if id, err := strconv.Atoi(term); err == nil && id > 0 {
		return &models.Song{ID: id}, nil
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrSongNotFound, term)
	}

	matches := fuzzy.FindFrom(term, songTitles(songs))
	if len(matches) == 0 {
		return &songs[0], nil
	}
	best := songs[matches[0].Index]
	return &best, nil
}

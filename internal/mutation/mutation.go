// Package mutation performs writes against the remote API and reconciles the query cache afterwards.
//
// Each call makes exactly one request. On success the cache keys listed in [Invalidations] for that
// kind are removed so dependent reads refetch; on failure nothing is invalidated. No write is ever
// applied to cached data locally.
//
// Concurrent identical mutations are not deduplicated or ordered. Two rapid AddSong calls for the
// same song send two requests; the resulting server state depends on arrival order.
package mutation

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/shared"
)

// Kind names a mutation.
type Kind string

const (
	CreatePlaylist Kind = "create-playlist"
	UpdatePlaylist Kind = "update-playlist"
	DeletePlaylist Kind = "delete-playlist"
	AddSong        Kind = "add-song"
	RemoveSong     Kind = "remove-song"
	UploadCover    Kind = "upload-cover"
)

// Target carries the parameters an invalidation rule may need.
type Target struct {
	PlaylistID int
}

// Rule maps a target to the cache patterns it invalidates.
type Rule func(Target) []query.Pattern

// Invalidations is the single table deciding which reads each mutation kind makes untrustworthy.
var Invalidations = map[Kind]Rule{
	CreatePlaylist: func(Target) []query.Pattern {
		return []query.Pattern{query.PlaylistsPattern()}
	},
	UpdatePlaylist: func(t Target) []query.Pattern {
		return []query.Pattern{query.PlaylistsPattern(), query.PlaylistPattern(t.PlaylistID)}
	},
	DeletePlaylist: func(t Target) []query.Pattern {
		return []query.Pattern{query.PlaylistsPattern(), query.PlaylistPattern(t.PlaylistID)}
	},
	AddSong: func(t Target) []query.Pattern {
		return []query.Pattern{query.PlaylistPattern(t.PlaylistID), query.PlaylistsPattern()}
	},
	RemoveSong: func(t Target) []query.Pattern {
		return []query.Pattern{query.PlaylistPattern(t.PlaylistID), query.PlaylistsPattern()}
	},
	UploadCover: func(Target) []query.Pattern { return nil },
}

// PatternsFor returns the patterns kind invalidates for target.
func PatternsFor(kind Kind, target Target) []query.Pattern {
	rule, ok := Invalidations[kind]
	if !ok {
		return nil
	}
	return rule(target)
}

// Writer is the playlist write surface of the gateway.
type Writer interface {
	Create(ctx context.Context, req models.CreatePlaylistRequest) (*models.Playlist, error)
	Update(ctx context.Context, id int, req models.UpdatePlaylistRequest) (*models.Playlist, error)
	Delete(ctx context.Context, id int) error
	AddSong(ctx context.Context, playlistID, songID int) (*models.Playlist, error)
	RemoveSong(ctx context.Context, playlistID, songID int) error
	UploadCover(ctx context.Context, filename string, image io.Reader) (string, error)
}

type busyKey struct {
	kind Kind
	id   int
}

// Coordinator runs mutations.
type Coordinator struct {
	writer   Writer
	cache    *query.Cache
	notifier shared.Notifier
	logger   *log.Logger

	mu   sync.Mutex
	busy map[busyKey]int
}

// Option configures a [Coordinator].
type Option func(*Coordinator)

func WithNotifier(n shared.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func NewCoordinator(writer Writer, cache *query.Cache, opts ...Option) *Coordinator {
	c := &Coordinator{writer: writer, cache: cache, busy: make(map[busyKey]int)}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = shared.NopNotifier{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Busy reports whether a mutation of kind is in flight for playlistID.
func (c *Coordinator) Busy(kind Kind, playlistID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[busyKey{kind, playlistID}] > 0
}

func (c *Coordinator) enter(k busyKey) func() {
	c.mu.Lock()
	c.busy[k]++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.busy[k]--; c.busy[k] <= 0 {
			delete(c.busy, k)
		}
	}
}

// run performs one mutation call and invalidates on success.
func (c *Coordinator) run(kind Kind, target Target, success string, call func() error) error {
	defer c.enter(busyKey{kind, target.PlaylistID})()

	if err := call(); err != nil {
		c.logger.Warn("mutation failed", "kind", kind, "playlist", target.PlaylistID, "error", err)
		c.notifier.Error(fmt.Sprintf("%s failed: %v", kind, err))
		return err
	}

	patterns := PatternsFor(kind, target)
	removed := c.cache.Invalidate(patterns...)
	c.logger.Debug("mutation applied", "kind", kind, "playlist", target.PlaylistID, "invalidated", removed)
	if success != "" {
		c.notifier.Success(success)
	}
	return nil
}

func (c *Coordinator) invalid(err error) error {
	c.notifier.Error(err.Error())
	return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
}

func (c *Coordinator) CreatePlaylist(ctx context.Context, req models.CreatePlaylistRequest) (*models.Playlist, error) {
	if err := req.Validate(); err != nil {
		return nil, c.invalid(err)
	}

	var created *models.Playlist
	err := c.run(CreatePlaylist, Target{}, "Playlist created", func() (err error) {
		created, err = c.writer.Create(ctx, req)
		return err
	})
	return created, err
}

func (c *Coordinator) UpdatePlaylist(ctx context.Context, id int, req models.UpdatePlaylistRequest) (*models.Playlist, error) {
	if err := req.Validate(); err != nil {
		return nil, c.invalid(err)
	}

	var updated *models.Playlist
	err := c.run(UpdatePlaylist, Target{PlaylistID: id}, "Playlist updated", func() (err error) {
		updated, err = c.writer.Update(ctx, id, req)
		return err
	})
	return updated, err
}

func (c *Coordinator) DeletePlaylist(ctx context.Context, id int) error {
	return c.run(DeletePlaylist, Target{PlaylistID: id}, "Playlist deleted", func() error {
		return c.writer.Delete(ctx, id)
	})
}

func (c *Coordinator) AddSong(ctx context.Context, playlistID, songID int) (*models.Playlist, error) {
	var updated *models.Playlist
	err := c.run(AddSong, Target{PlaylistID: playlistID}, "Song added to playlist", func() (err error) {
		updated, err = c.writer.AddSong(ctx, playlistID, songID)
		return err
	})
	return updated, err
}

func (c *Coordinator) RemoveSong(ctx context.Context, playlistID, songID int) error {
	return c.run(RemoveSong, Target{PlaylistID: playlistID}, "Song removed from playlist", func() error {
		return c.writer.RemoveSong(ctx, playlistID, songID)
	})
}

// UploadCover uploads an image and returns its URL. It invalidates nothing; attach the URL with UpdatePlaylist.
func (c *Coordinator) UploadCover(ctx context.Context, filename string, image io.Reader) (string, error) {
	var url string
	err := c.run(UploadCover, Target{}, "", func() (err error) {
		url, err = c.writer.UploadCover(ctx, filename, image)
		return err
	})
	return url, err
}

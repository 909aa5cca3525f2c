package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/setlist/internal/models"
)

// SongsAPI reads the song catalogue.
type SongsAPI struct{ c *Client }

func (c *Client) Songs() SongsAPI { return SongsAPI{c} }

// List returns one page of songs matching filters.
func (s SongsAPI) List(ctx context.Context, filters models.SongFilters) ([]models.Song, error) {
	var page models.Page[models.Song]
	if err := s.c.Do(ctx, http.MethodGet, "/song", filters.Values(), nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

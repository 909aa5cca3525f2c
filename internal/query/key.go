package query

import (
	"net/url"
	"strconv"
)

// Resource names used as the first half of every [Key].
const (
	ResourceSongs     = "songs"
	ResourcePlaylists = "playlists"
	ResourcePlaylist  = "playlist"
)

// Key identifies a cached read: a resource name and its canonically encoded parameters.
type Key struct {
	Resource string
	Params   string
}

// NewKey encodes params in sorted order so equal parameter sets produce equal keys.
func NewKey(resource string, params url.Values) Key {
	return Key{Resource: resource, Params: params.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}

// Pattern selects keys by resource and, optionally, a subset of parameters.
type Pattern struct {
	Resource string
	Params   url.Values
}

// Matches reports whether k has the pattern's resource and every pattern parameter with the same values.
func (p Pattern) Matches(k Key) bool {
	if p.Resource != k.Resource {
		return false
	}
	if len(p.Params) == 0 {
		return true
	}

	have, err := url.ParseQuery(k.Params)
	if err != nil {
		return false
	}
	for name, want := range p.Params {
		got := have[name]
		if len(got) != len(want) {
			return false
		}
		for i := range want {
			if got[i] != want[i] {
				return false
			}
		}
	}
	return true
}

func (p Pattern) String() string {
	return NewKey(p.Resource, p.Params).String()
}

func idParams(id int) url.Values {
	return url.Values{"id": {strconv.Itoa(id)}}
}

// PlaylistsKey is the key of the playlist collection.
func PlaylistsKey() Key { return NewKey(ResourcePlaylists, nil) }

// PlaylistKey is the key of one playlist's detail.
func PlaylistKey(id int) Key { return NewKey(ResourcePlaylist, idParams(id)) }

// PlaylistsPattern matches the playlist collection.
func PlaylistsPattern() Pattern { return Pattern{Resource: ResourcePlaylists} }

// PlaylistPattern matches one playlist's detail.
func PlaylistPattern(id int) Pattern { return Pattern{Resource: ResourcePlaylist, Params: idParams(id)} }

// SongsPattern matches every song listing regardless of filters.
func SongsPattern() Pattern { return Pattern{Resource: ResourceSongs} }

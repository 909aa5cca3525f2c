// Package models defines the data exchanged with the remote music API and the few entities setlist persists locally.
//
// Wire types mirror the API's JSON:
//   - [Song] : read-only track metadata, referenced by id
//   - [Playlist] : playlist metadata with its songs in server order
//   - [Envelope] : the {ok, result} wrapper around every response
//   - [Credentials] : the bearer token and expiry returned by login
//
// Request types ([LoginRequest], [RegisterRequest], [CreatePlaylistRequest], [UpdatePlaylistRequest])
// carry a Validate method that runs before any request is sent and reports a [ValidationError].
//
// [Export] is the only persisted entity and implements [Model]; [Repository] is the CRUD contract its store satisfies.
package models

// Package services is the gateway to the remote music API.
//
// # Client
//
// [Client] sends every request through two middleware chains:
//   - [PrepareChain] runs on the outgoing request in registration order (request id, user agent, rate limit, bearer)
//   - [InspectChain] runs on the response before it is decoded (the 401 interceptor)
//
// Credential injection ([WithBearer]) and credential invalidation ([WithUnauthorizedRedirect]) live only in these
// chains; the resource accessors never touch the Authorization header.
//
// # Resource Accessors
//
// [AuthAPI], [SongsAPI] and [PlaylistsAPI] map logical operations to verbs, paths and query encodings:
//
//	POST   /site/register
//	POST   /site/login
//	GET    /song?filter[title][like]=...&page=...&per-page=...
//	GET    /playlist
//	GET    /playlist/{id}
//	POST   /playlist
//	PATCH  /playlist/{id}
//	DELETE /playlist/{id}
//	POST   /playlist/add-song/{id}
//	DELETE /playlist/remove-song/{id}
//	POST   /uploader/playlist-cover
//
// # Errors
//
// Failures are reported as one of:
//   - [*TransportError] : no response was received (includes timeouts)
//   - [ErrUnauthorized] : the server answered 401; the credential has been cleared
//   - [*APIError] : the server answered with a non-2xx status or an ok=false envelope
package services

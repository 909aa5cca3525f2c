// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Views are addressed by the same paths the route guard understands:
//  1. [LoginView] (/auth/login) and [RegisterView] (/auth/register) : credential forms
//  2. [DashboardView] (/dashboard) : playlists, create and delete
//  3. [PlaylistView] (/playlist/{id}) : songs of one playlist, remove
//  4. [SongsView] (/songs) : song browser, add to the playlist that opened it
//
// Every view change goes through [Model.Navigate], which applies routes.Decide first. The gateway's
// unauthorized interceptor reaches the model through a routes.Relay installed by [Run].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help from bubbles/help.
package ui

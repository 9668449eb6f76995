// Package library serves the read side of a user's synced library and the per-account documents.
//
// [Facade] resolves ids from the user's index and loads the stored content for them. Playlists and
// albums come back with their tracks attached. Content that is missing from the store is skipped
// rather than reported, so a result may hold fewer items than the index lists.
package library

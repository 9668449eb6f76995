// Package repositories maps domain models onto document paths in the [store.Store].
//
// Content (tracks, albums, playlists, artists) is global and keyed by content-agnostic id,
// so one stored Track is shared by every user whose library references its ISRC.
// Library indexes, tokens, info and settings are strictly per user.
//
// Document layout:
//
//	Tracks/{isrc}
//	Albums/{upc}
//	Playlists/{nativeId}{PLATFORM}
//	Artists/{nativeId}{PLATFORM}
//	UserContentData/{uid}
//	Tokens/{uid}/User_tokens/{PLATFORM}
//	Info/{uid}
//	Settings/{uid}
package repositories

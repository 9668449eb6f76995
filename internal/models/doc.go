// Package models defines the domain entities shared by every layer of the library sync service.
//
// # Identity
//
// Every canonical entity implements [Content] through the embedded [Identity] header:
//   - [Track] : keyed by ISRC, so the same recording found on two platforms is one entity
//   - [Album] : keyed by UPC, deduplicated the same way
//   - [Playlist] : keyed by [CompositeID] (native id + platform), never merged across platforms
//   - [Artist] : keyed by [CompositeID], never merged across platforms
//
// [Platform] and [ContentKind] are closed enumerations. They encode as their canonical
// upper-case names ("SPOTIFY", "APPLE_MUSIC", "TRACK", ...).
//
// # Ownership
//
// [UserLibraryIndex] holds one [SaveRef] per (kind, content id) saved by a user. A ref lists
// the platforms that currently claim the content. Refs move through
// absent -> {p1} -> {p1,p2} -> {p2} -> absent, driven only by [UserLibraryIndex.AddPlatform]
// and [UserLibraryIndex.RemovePlatform]; a ref with no owners is deleted, never kept empty.
//
// # Account
//
// [Token], [Info] and [Setting] are strictly per-user documents.
package models

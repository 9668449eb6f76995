// Package store persists JSON documents in a single SQL table addressed by slash-separated paths.
//
// Paths follow a collection/id layout, for example "Tracks/USRC17607839" or
// "Tokens/{uid}/User_tokens/SPOTIFY". Every document carries a version that
// increments on each write, which backs [Store.CompareAndSet].
//
// Writes that must land together go through [Store.Batch]. A batch is split into
// chunks of at most the configured batch size and each chunk commits atomically.
// When a chunk fails, earlier chunks stay committed and a [*BatchError] reports
// how far the batch got.
package store

// Package tasks runs the long operations behind sync and export with progress reporting.
//
// # Reconciliation
//
// [Reconciler.Reconcile] brings one (user, platform, content kind) slice of a user's library
// index in line with the platform:
//
//  1. Load the index; a user without one is rejected.
//  2. Make sure the platform access token is fresh, refreshing it if needed.
//     A rejected refresh token stops here with [shared.ErrReauthRequired].
//  3. Fetch the complete collection through the platform adapter.
//  4. Store fetched content. Tracks and albums are inserted only when absent,
//     playlists and artists are overwritten.
//  5. Replace the platform's ownership in the index with the fetched set, using a versioned
//     write that is retried when another reconcile for the same user wins the race.
//
// Reconciling an unchanged library performs no index write at all.
// [Reconciler.ReconcileAll] runs every content kind of a platform concurrently.
//
// # Export
//
// [Exporter.Export] renders a user's stored library one content kind at a time through
// [formatter.Render] and hands each object to a [Sink]: [DirSink] for local files or
// [MinioSink] for S3-compatible object storage. A manifest listing every object, and the
// error of any kind that failed, is written last.
//
// # Progress Reporting
//
// Both operations accept an optional channel of [ProgressUpdate]. Sends never block;
// updates are dropped when the channel is full.
package tasks

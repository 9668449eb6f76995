// Package services defines the [Adapter] interface for music streaming platforms and implements it
// for Spotify and Apple Music.
//
// # Adapter Interface
//
// Every platform exposes the same read-only view of a user's library: liked tracks, playlists,
// saved albums and followed artists. Each list operation pages until the platform reports no more
// results and returns the whole collection, or an error. [Fetch] maps a [models.ContentKind] to the
// matching operation and normalizes the result into a [Snapshot].
//
// # Identity
//
// Tracks are keyed by ISRC and albums by UPC so the same recording resolves to one document across
// platforms. Items that do not carry one are dropped during conversion. Playlists and artists have
// no cross-platform identifier and are keyed by [models.CompositeID].
//
// # Spotify Implementation
//
// [SpotifyService] uses the authorization code flow through [oauth2.Config]. Saved album tracks do
// not include ISRCs, so they are resolved in batches against the several-tracks endpoint.
//
// # Apple Music Implementation
//
// [AppleMusicService] signs an ES256 developer token with the MusicKit key and caches it until a
// day before expiry. The Music User Token is obtained client-side and cannot be refreshed, so
// [AppleMusicService.RefreshAccessToken] always reports an invalid refresh token.
//
// # Error Handling
//
// Non-2xx responses and transport failures become a [*PlatformError] which unwraps to the shared
// sentinels:
//   - [shared.ErrPlatformAuth] : 401 and 403
//   - [shared.ErrRateLimited] : 429, with Retry-After when the platform sends one
//   - [shared.ErrPlatformTransient] : 5xx and network failures
//   - [shared.ErrPlatformInvalid] : any other rejected request
//
// [Registry] resolves adapters by platform and returns [shared.ErrMissingCredentials] for a
// platform without configured credentials.
package services

// Package tokens manages the lifecycle of per-user platform credentials.
//
// [Manager] links a platform by exchanging an authorization code, hands out access tokens that
// are refreshed on demand, and unlinks platforms. A refresh for one (uid, platform) pair runs at
// most once at a time, since refresh tokens may rotate on use.
//
// A refresh token the platform no longer accepts surfaces as [shared.ErrReauthRequired]. Callers
// treat it as "link again", never as a retryable failure.
package tokens

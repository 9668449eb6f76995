// Package server exposes the library sync operations as authenticated callable functions over HTTP.
//
// # Callable Functions
//
// Every function is invoked as POST /v1/{function} with a body of {"data": {...}}.
// Success responds with {"result": {...}}; failure responds with
// {"error": {"status", "message", "details"}}, where status is a callable status string
// (UNAUTHENTICATED, INVALID_ARGUMENT, NOT_FOUND, FAILED_PRECONDITION, PERMISSION_DENIED,
// RESOURCE_EXHAUSTED, UNAVAILABLE or INTERNAL) and the HTTP status matches it.
//
// A platform that needs to be linked again answers FAILED_PRECONDITION with details
// {"reauth": true}, so clients can tell it apart from a retryable failure. A platform that
// refuses a data call with a valid token answers PERMISSION_DENIED without the flag.
//
// # Caller Identity
//
// The caller uid comes from the Authorization bearer token, verified by an [IdentityVerifier]:
// [HMACVerifier] for HS256 tokens signed with a shared secret, or [OIDCVerifier] for ID tokens
// from an OpenID Connect issuer. Only generateUrl may be called anonymously.
//
// # OAuth Callback
//
// generateUrl signs the OAuth state with [StateSigner] when the caller is known. The
// [CallbackHandler] at GET /callback/{platform} checks that state, exchanges the code and
// links the platform for the uid it carries.
//
// # Operational Routes
//
// GET /healthz answers "ok" and GET /metrics serves Prometheus metrics.
package server

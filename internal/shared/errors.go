package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Caller and input errors
	ErrUnauthenticated = fmt.Errorf("caller is not authenticated")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("%w: missing required argument", ErrInvalidArgument)
	ErrUnknownPlatform = fmt.Errorf("%w: unknown platform", ErrInvalidArgument)
	ErrUnknownKind     = fmt.Errorf("%w: unknown content type", ErrInvalidArgument)

	// Lookup errors
	ErrNotFound      = fmt.Errorf("not found")
	ErrIndexNotFound = fmt.Errorf("%w: user content data", ErrNotFound)
	ErrTokenNotFound = fmt.Errorf("%w: platform token", ErrNotFound)

	// Token lifecycle errors
	ErrReauthRequired = fmt.Errorf("re-authentication required")
	ErrAuthExchange   = fmt.Errorf("authorization code exchange failed")

	// Platform errors
	ErrPlatformAuth      = fmt.Errorf("platform rejected credentials")
	ErrPlatformTransient = fmt.Errorf("platform temporarily unavailable")
	ErrRateLimited       = fmt.Errorf("%w: rate limited", ErrPlatformTransient)
	ErrPlatformInvalid   = fmt.Errorf("platform rejected request")

	// Store errors
	ErrStoreWrite = fmt.Errorf("store write failed")
	ErrConflict   = fmt.Errorf("document version conflict")
)

// Kind classifies an error for callers outside the core.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidArgument
	KindNotFound
	KindReauthRequired
	KindRateLimited
	KindPlatformTransient
	KindStoreWrite
	KindPlatformAuth
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindReauthRequired:
		return "reauth_required"
	case KindRateLimited:
		return "rate_limited"
	case KindPlatformTransient:
		return "platform_transient"
	case KindStoreWrite:
		return "store_write"
	case KindPlatformAuth:
		return "platform_auth"
	default:
		return "internal"
	}
}

// Retryable reports whether the whole operation may be retried later without user action.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindPlatformTransient
}

// KindOf walks the error chain and returns the most specific [Kind].
//
// Order matters: a rate limit is also transient, and a failed refresh marks the link as needing
// reauth even when the platform's rejection is wrapped alongside it. A 401 or 403 on a data call is
// only a platform auth failure; the refresh path decides whether the link is dead.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrReauthRequired):
		return KindReauthRequired
	case errors.Is(err, ErrPlatformAuth):
		return KindPlatformAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrPlatformTransient), errors.Is(err, context.DeadlineExceeded):
		return KindPlatformTransient
	case errors.Is(err, ErrStoreWrite), errors.Is(err, ErrConflict):
		return KindStoreWrite
	default:
		return KindInternal
	}
}

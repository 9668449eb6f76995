package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// ErrorKind classifies a platform failure.
type ErrorKind int

const (
	AuthError ErrorKind = iota + 1
	RateLimited
	Transient
	Invalid
)

func (k ErrorKind) String() string {
	switch k {
	case AuthError:
		return "auth"
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case AuthError:
		return shared.ErrPlatformAuth
	case RateLimited:
		return shared.ErrRateLimited
	case Transient:
		return shared.ErrPlatformTransient
	default:
		return shared.ErrPlatformInvalid
	}
}

// PlatformError is returned by adapters for any failed platform call.
// It unwraps to the shared sentinel of its kind, so callers can use [errors.Is].
type PlatformError struct {
	Platform   models.Platform
	Kind       ErrorKind
	Op         string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *PlatformError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Platform, e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// classifyStatus maps a non-2xx response to a [PlatformError].
func classifyStatus(p models.Platform, op string, resp *APIResponse) *PlatformError {
	e := &PlatformError{Platform: p, Op: op, Status: resp.StatusCode}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		e.Kind = AuthError
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = RateLimited
		e.RetryAfter = parseRetryAfter(resp.Headers.Get("Retry-After"))
	case resp.StatusCode >= 500:
		e.Kind = Transient
	default:
		e.Kind = Invalid
	}

	if len(resp.Body) > 0 {
		e.Err = errors.New(truncate(string(resp.Body), 200))
	}
	return e
}

// networkError wraps a transport failure. Cancellation by the caller is passed through unchanged.
func networkError(p models.Platform, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &PlatformError{Platform: p, Kind: Transient, Op: op, Err: err}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t).Round(time.Second)
	}
	return 0
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

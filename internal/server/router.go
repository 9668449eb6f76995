package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// maxBodyBytes caps a function request body.
const maxBodyBytes = 1 << 20

// Call is one invocation of a callable function.
type Call struct {
	UID       string
	RequestID string
	Data      json.RawMessage
}

// Function handles one callable function. The returned value becomes the "result" member.
type Function func(ctx context.Context, call *Call) (any, error)

type function struct {
	fn Function
	// anonymous functions may run without a verified caller.
	anonymous bool
}

type request struct {
	Data json.RawMessage `json:"data"`
}

type response struct {
	Result any        `json:"result,omitempty"`
	Error  *callError `json:"error,omitempty"`
}

type callError struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Reply is the result shape every function returns.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "function")
	f, ok := s.functions[name]
	if !ok {
		writeError(w, fmt.Errorf("%w: function %q", shared.ErrNotFound, name))
		return
	}

	call := &Call{UID: CallerUID(r.Context()), RequestID: RequestID(r.Context())}
	if !f.anonymous && call.UID == "" {
		writeError(w, shared.ErrUnauthenticated)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, fmt.Errorf("%w: failed to read body: %v", shared.ErrInvalidArgument, err))
		return
	}
	if len(body) > 0 {
		var req request
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidArgument, err))
			return
		}
		call.Data = req.Data
	}

	logger := s.logger.With("function", name, "uid", call.UID, "request_id", call.RequestID)
	logger.Debug("function started")

	result, err := f.fn(r.Context(), call)
	if err != nil {
		kind := shared.KindOf(err)
		switch kind {
		case shared.KindInternal, shared.KindStoreWrite:
			logger.Error("function failed", "kind", kind, "err", err)
		default:
			logger.Info("function rejected", "kind", kind, "err", err)
		}
		writeError(w, err)
		return
	}

	logger.Debug("function finished")
	writeJSON(w, http.StatusOK, response{Result: result})
}

// bind decodes the call data into T. Absent data yields the zero value.
func bind[T any](call *Call) (T, error) {
	var v T
	if len(call.Data) == 0 || string(call.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(call.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return v, nil
}

// callStatus maps an error kind to the callable status string.
func callStatus(k shared.Kind) string {
	switch k {
	case shared.KindUnauthenticated:
		return "UNAUTHENTICATED"
	case shared.KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case shared.KindNotFound:
		return "NOT_FOUND"
	case shared.KindReauthRequired:
		return "FAILED_PRECONDITION"
	case shared.KindPlatformAuth:
		return "PERMISSION_DENIED"
	case shared.KindRateLimited:
		return "RESOURCE_EXHAUSTED"
	case shared.KindPlatformTransient:
		return "UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

func httpStatus(k shared.Kind) int {
	switch k {
	case shared.KindUnauthenticated:
		return http.StatusUnauthorized
	case shared.KindInvalidArgument:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindReauthRequired:
		return http.StatusPreconditionFailed
	case shared.KindPlatformAuth:
		return http.StatusForbidden
	case shared.KindRateLimited:
		return http.StatusTooManyRequests
	case shared.KindPlatformTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toCallError(err error) (int, *callError) {
	kind := shared.KindOf(err)
	ce := &callError{Status: callStatus(kind), Message: err.Error()}

	switch kind {
	case shared.KindInternal, shared.KindStoreWrite:
		ce.Message = "internal error"
	case shared.KindReauthRequired:
		ce.Details = map[string]any{"success": false, "reauth": true}
	case shared.KindRateLimited:
		var pe *services.PlatformError
		if errors.As(err, &pe) && pe.RetryAfter > 0 {
			ce.Details = map[string]any{"retryAfterSeconds": int(pe.RetryAfter.Seconds())}
		}
	}

	return httpStatus(kind), ce
}

func writeError(w http.ResponseWriter, err error) {
	status, ce := toCallError(err)
	writeJSON(w, status, response{Error: ce})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

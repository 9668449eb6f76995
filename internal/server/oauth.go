package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/tokens"
)

// DefaultStateTTL bounds how long an authorization URL stays usable.
const DefaultStateTTL = 10 * time.Minute

// stateClaims binds an OAuth state value to the user and platform that started the flow.
type stateClaims struct {
	Platform models.Platform `json:"plt"`
	jwt.RegisteredClaims
}

// StateSigner issues and checks OAuth state values as short-lived HS256 tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a StateSigner.
func NewStateSigner(secret string, ttl time.Duration) (*StateSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: server.state_secret", shared.ErrMissingConfig)
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign returns a state value for uid linking p.
func (s *StateSigner) Sign(uid string, p models.Platform) (string, error) {
	now := s.now()
	claims := stateClaims{
		Platform: p,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks state and returns the uid it was issued for. The state must have been issued for p.
func (s *StateSigner) Verify(state string, p models.Platform) (string, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: invalid state parameter: %v", shared.ErrInvalidArgument, err)
	}
	if claims.Subject == "" || claims.Platform != p {
		return "", fmt.Errorf("%w: state was not issued for %s", shared.ErrInvalidArgument, p)
	}
	return claims.Subject, nil
}

// CallbackHandler completes the authorization code flow that [tokens.Manager.AuthURL] starts.
//
// The uid comes from the signed state, so the callback itself needs no caller credentials.
type CallbackHandler struct {
	tokens *tokens.Manager
	state  *StateSigner
	logger *log.Logger
}

// NewCallbackHandler creates a CallbackHandler.
func NewCallbackHandler(m *tokens.Manager, state *StateSigner, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{tokens: m, state: state, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback/{platform}"}
}

// ServeHTTP validates the state, exchanges the authorization code and stores the token.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		http.Error(w, "Unknown platform", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	uid, err := h.state.Verify(query.Get("state"), p)
	if err != nil {
		h.logger.Warn("rejected oauth callback", "platform", p, "err", err)
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("authorization failed", "platform", p, "uid", uid, "error", query.Get("error"), "description", query.Get("error_description"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if _, err := h.tokens.Link(r.Context(), uid, p, code); err != nil {
		h.logger.Error("token exchange failed", "platform", p, "uid", uid, "err", err)
		http.Error(w, "Token exchange failed", httpStatus(shared.KindOf(err)))
		return
	}

	h.logger.Info("platform linked", "platform", p, "uid", uid)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ %s Linked</h1>
        <p>You can close this window and return to the app.</p>
    </div>
</body>
</html>
`, displayName(p))
}

func displayName(p models.Platform) string {
	switch p {
	case models.Spotify:
		return "Spotify"
	case models.AppleMusic:
		return "Apple Music"
	default:
		return p.String()
	}
}

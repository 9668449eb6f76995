// HTTP client shared by platform adapters
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"golang.org/x/time/rate"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	baseURL    string
	authURL    string
	tokenURL   string
	httpClient *http.Client
	rateLimit  float64
	logger     *log.Logger
}

// WithBaseURL points API calls at baseURL instead of the platform's public host.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithOAuthEndpoints overrides the authorize and token endpoints.
func WithOAuthEndpoints(authURL, tokenURL string) Option {
	return func(o *options) { o.authURL, o.tokenURL = authURL, tokenURL }
}

// WithHTTPClient sets the client used for API and token calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRateLimit caps outbound requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(o *options) { o.rateLimit = perSecond }
}

// WithLogger sets the adapter logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.NopLogger()
	}
	return o
}

// apiClient issues rate-limited GET requests against one platform API and classifies failures.
type apiClient struct {
	platform   models.Platform
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newAPIClient(p models.Platform, baseURL string, o options) *apiClient {
	limit := rate.Inf
	burst := 1
	if o.rateLimit > 0 {
		limit = rate.Limit(o.rateLimit)
		burst = max(int(o.rateLimit), 1)
	}

	return &apiClient{
		platform:   p,
		baseURL:    baseURL,
		httpClient: o.httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Get performs a GET request to path with query and headers. Non-2xx responses become a [*PlatformError].
func (c *apiClient) Get(ctx context.Context, op, path string, query url.Values, headers http.Header) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(c.platform, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(c.platform, op, fmt.Errorf("failed to read response: %w", err))
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	if !apiResp.OK() {
		return nil, classifyStatus(c.platform, op, apiResp)
	}

	return apiResp, nil
}

// GetJSON performs [apiClient.Get] and decodes the body into result.
func (c *apiClient) GetJSON(ctx context.Context, op, path string, query url.Values, headers http.Header, result any) error {
	resp, err := c.Get(ctx, op, path, query, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return &PlatformError{Platform: c.platform, Kind: Invalid, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

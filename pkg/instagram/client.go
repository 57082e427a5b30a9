package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	igerrors "igarchive/pkg/errors"
	"igarchive/pkg/logger"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/retry"
	"igarchive/pkg/session"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Options configures a Client.
type Options struct {
	// Timeout applies per HTTP request.
	Timeout time.Duration
	// UserAgent overrides the default browser user agent.
	UserAgent string
	// ConnectionAttempts is the attempt budget for network-level failures.
	ConnectionAttempts int
	// RetryDelay is the pause between connection attempts.
	RetryDelay time.Duration
	// BaseURL overrides the Instagram base URL, for tests.
	BaseURL string
	// Pacer, when set, spaces out timeline page fetches.
	Pacer ratelimit.Pacer
	// Logger receives request logging; nil uses the global logger.
	Logger logger.Logger
}

// Client wraps net/http with browser headers, cookie state, and typed error
// mapping for the two documented Instagram endpoints.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	retryCfg   *retry.Config
	pacer      ratelimit.Pacer
	logger     logger.Logger
}

// NewClient creates an Instagram API client.
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	attempts := opts.ConnectionAttempts
	if attempts <= 0 {
		attempts = 3
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	retryCfg := &retry.Config{
		MaxAttempts: attempts,
		Backoff:     retry.Constant{Delay: retryDelay},
		RetryIf: func(err error) bool {
			var apiErr *igerrors.Error
			if errors.As(err, &apiErr) {
				return apiErr.Type == igerrors.ErrorTypeNetwork
			}
			return false
		},
		Logger: log,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     "936619743392459",
		},
		baseURL:  baseURL,
		retryCfg: retryCfg,
		pacer:    opts.Pacer,
		logger:   log,
	}, nil
}

// SetHeader sets a custom header for all subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// BaseURL returns the base URL requests are issued against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ApplySession injects a saved session's cookies so requests run
// authenticated.
func (c *Client) ApplySession(sess *session.Session) error {
	if sess == nil || sess.SessionID == "" {
		return igerrors.New(igerrors.ErrorTypeAuth, 0, "session has no session ID")
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	cookies := []*http.Cookie{{Name: "sessionid", Value: sess.SessionID, Path: "/"}}
	if sess.CSRFToken != "" {
		cookies = append(cookies, &http.Cookie{Name: "csrftoken", Value: sess.CSRFToken, Path: "/"})
		c.SetHeader("X-CSRFToken", sess.CSRFToken)
	}
	for name, value := range sess.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(base, cookies)

	if sess.UserAgent != "" {
		c.SetHeader("User-Agent", sess.UserAgent)
	}

	c.logger.DebugWithFields("session applied", map[string]interface{}{
		"username": sess.Username,
	})
	return nil
}

// SessionCookie reports the current value of a cookie, empty when unset.
func (c *Client) SessionCookie(name string) string {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// doRequest performs one HTTP request with the configured headers.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, igerrors.New(igerrors.ErrorTypeNetwork, 0, fmt.Sprintf("network error: %v", err))
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// get performs a GET with connection-level retry for network failures.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return igerrors.New(igerrors.ErrorTypeUnknown, 0, fmt.Sprintf("failed to create request: %v", err))
		}
		resp, err = c.doRequest(req)
		return err
	}, c.retryCfg)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return igerrors.New(igerrors.ErrorTypeNetwork, resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return igerrors.New(igerrors.ErrorTypeParsing, resp.StatusCode, fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// checkResponseStatus maps a non-OK response to a typed error.
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode < 400 {
		return nil
	}
	return igerrors.FromStatusCode(resp.StatusCode, http.StatusText(resp.StatusCode))
}

// FetchProfile fetches a user's profile.
func (c *Client) FetchProfile(ctx context.Context, username string) (*APIResponse, error) {
	url := ProfileURL(c.baseURL, username)

	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response APIResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, igerrors.New(igerrors.ErrorTypeAuth, http.StatusUnauthorized,
			"Instagram requires authentication to view this profile")
	}
	if response.Data.User.ID == "" {
		return nil, igerrors.New(igerrors.ErrorTypeNotFound, http.StatusNotFound,
			fmt.Sprintf("profile %q does not exist", username))
	}

	return &response, nil
}

// FetchTimelinePage fetches one page of a user's timeline media. Page
// requests are paced when the client was built with a pacer.
func (c *Client) FetchTimelinePage(ctx context.Context, userID, after string, limit int) (*EdgeOwnerToTimelineMedia, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := MediaURL(c.baseURL, userID, after, limit)

	c.logger.DebugWithFields("fetching timeline page", map[string]interface{}{
		"user_id": userID,
		"after":   after,
	})

	var response APIResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	return &response.Data.User.EdgeOwnerToTimelineMedia, nil
}

// DownloadPhoto streams photo data from its CDN URL. The caller owns the
// returned body.
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, photoURL)
	if err != nil {
		return nil, err
	}

	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	igerrors "igarchive/pkg/errors"
	"igarchive/pkg/session"
)

// Login performs a password login and returns the resulting session. The
// password is sent in the browser-encoded format the web client uses.
// Two-factor and checkpoint challenges are reported as auth errors; this
// client cannot complete them.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	csrfToken, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	encPassword := fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password)

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", encPassword)
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+LoginEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, igerrors.New(igerrors.ErrorTypeUnknown, 0, fmt.Sprintf("failed to create login request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrfToken)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL+"/accounts/login/")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, igerrors.New(igerrors.ErrorTypeParsing, resp.StatusCode,
			fmt.Sprintf("failed to parse login response: %v", err))
	}

	switch {
	case result.TwoFactorRequired:
		return nil, igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode,
			"two-factor authentication is enabled for this account; log in with a browser and pass the sessionid cookie instead")
	case result.CheckpointURL != "":
		return nil, igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode,
			fmt.Sprintf("Instagram requires a checkpoint challenge; resolve it in a browser at %s", result.CheckpointURL))
	case !result.Authenticated && result.User:
		return nil, igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode, "wrong password")
	case !result.Authenticated:
		msg := result.Message
		if msg == "" {
			msg = "login failed"
		}
		return nil, igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode, msg)
	}

	sessionID := c.SessionCookie("sessionid")
	if sessionID == "" {
		return nil, igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode,
			"login succeeded but no session cookie was returned")
	}

	sess := &session.Session{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: c.SessionCookie("csrftoken"),
		UserAgent: c.headers["User-Agent"],
		CreatedAt: time.Now(),
	}

	c.logger.InfoWithFields("logged in", map[string]interface{}{
		"username": username,
	})

	return sess, nil
}

// fetchCSRFToken primes the cookie jar by loading the login page and returns
// the csrftoken cookie Instagram sets on it.
func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.baseURL+"/accounts/login/")
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	token := c.SessionCookie("csrftoken")
	if token == "" {
		return "", igerrors.New(igerrors.ErrorTypeAuth, resp.StatusCode, "no CSRF token issued")
	}
	return token, nil
}

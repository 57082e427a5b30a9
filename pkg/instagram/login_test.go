package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igarchive/pkg/errors"
)

func loginServer(t *testing.T, result loginResponse, setSession bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-abc", Path: "/"})
	})
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "csrf-abc", r.Header.Get("X-CSRFToken"))
		assert.True(t, strings.HasPrefix(r.PostFormValue("enc_password"), "#PWD_INSTAGRAM_BROWSER:0:"),
			"password must use the browser encoding")

		if setSession {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "session-xyz", Path: "/"})
		}
		json.NewEncoder(w).Encode(result)
	})
	return httptest.NewServer(mux)
}

func TestLoginSuccess(t *testing.T) {
	server := loginServer(t, loginResponse{Authenticated: true, User: true, Status: "ok"}, true)
	defer server.Close()

	client := testClient(t, server.URL)
	sess, err := client.Login(context.Background(), "someone", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "someone", sess.Username)
	assert.Equal(t, "session-xyz", sess.SessionID)
	assert.Equal(t, "csrf-abc", sess.CSRFToken)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestLoginWrongPassword(t *testing.T) {
	server := loginServer(t, loginResponse{Authenticated: false, User: true, Status: "fail"}, false)
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Login(context.Background(), "someone", "wrong")
	require.Error(t, err)

	var apiErr *igerrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, igerrors.ErrorTypeAuth, apiErr.Type)
	assert.Contains(t, apiErr.Message, "wrong password")
}

func TestLoginTwoFactorRequired(t *testing.T) {
	server := loginServer(t, loginResponse{TwoFactorRequired: true, Status: "fail"}, false)
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Login(context.Background(), "someone", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two-factor")
}

func TestLoginCheckpointRequired(t *testing.T) {
	server := loginServer(t, loginResponse{CheckpointURL: "/challenge/123/", Status: "fail"}, false)
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Login(context.Background(), "someone", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint")
}

func TestLoginNoSessionCookie(t *testing.T) {
	server := loginServer(t, loginResponse{Authenticated: true, User: true, Status: "ok"}, false)
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Login(context.Background(), "someone", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session cookie")
}

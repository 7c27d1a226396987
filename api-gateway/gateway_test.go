package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoUpstream answers with the identity headers it received.
func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"path":     r.URL.Path,
			"sub":      r.Header.Get(auth.HeaderSub),
			"username": r.Header.Get(auth.HeaderUsername),
			"groups":   r.Header.Get(auth.HeaderGroups),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGateway(t *testing.T, upstream string) (http.Handler, *auth.TokenIssuer) {
	t.Helper()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	r, err := newRouter(config.GatewayConfig{
		TasksServiceURL:         upstream,
		UsersServiceURL:         upstream,
		NotificationsServiceURL: upstream,
	}, tokens)
	require.NoError(t, err)
	return httpx.EnableCORS(r), tokens
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGateway_ForwardsClaims(t *testing.T) {
	gw, tokens := newTestGateway(t, echoUpstream(t).URL)
	token, err := tokens.Issue(auth.Identity{Sub: "sub-bob", Username: "bob", Groups: []string{"member"}})
	require.NoError(t, err)

	for _, path := range []string{"/tasks", "/users", "/notifications", "/notifications/read", "/auth/change-password"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(auth.HeaderGroups, "admin")
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, path)
		body := decode(t, rec)
		assert.Equal(t, path, body["path"])
		assert.Equal(t, "sub-bob", body["sub"])
		assert.Equal(t, "bob", body["username"])
		assert.Equal(t, "member", body["groups"], "forged group header must be replaced")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestGateway_RejectsMissingOrBadToken(t *testing.T) {
	gw, _ := newTestGateway(t, echoUpstream(t).URL)
	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, err := other.Issue(auth.Identity{Sub: "sub-x", Groups: []string{"admin"}})
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + forged,
	} {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestGateway_PreflightNeedsNoToken(t *testing.T) {
	gw, _ := newTestGateway(t, echoUpstream(t).URL)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tasks", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CORS preflight successful", decode(t, rec)["message"])
}

func TestGateway_LoginIsAnonymous(t *testing.T) {
	gw, _ := newTestGateway(t, echoUpstream(t).URL)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(auth.HeaderSub, "sub-forged")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "/auth/login", body["path"])
	assert.Empty(t, body["sub"])
}

func TestGateway_UpstreamDownOpensBreaker(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	gw, tokens := newTestGateway(t, url)
	token, err := tokens.Issue(auth.Identity{Sub: "sub-bob", Username: "bob"})
	require.NoError(t, err)

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusBadGateway, call())
	}
	assert.Equal(t, http.StatusServiceUnavailable, call())
}

func TestGateway_Health(t *testing.T) {
	gw, _ := newTestGateway(t, echoUpstream(t).URL)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_InvalidUpstream(t *testing.T) {
	_, err := newRouter(config.GatewayConfig{
		TasksServiceURL:         "not a url",
		UsersServiceURL:         "http://users:8080",
		NotificationsServiceURL: "http://notifications:8080",
	}, auth.NewTokenIssuer("s", time.Hour))
	assert.Error(t, err)
}

package resolver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/auth"
)

func newTestGateway(t *testing.T) (http.Handler, *Resolver) {
	t.Helper()
	r, st := newTestResolver(t)
	jwt := auth.NewJwtClient([]byte("test-secret"), time.Hour, st)
	g := &Gateway{
		Resolver: r,
		Auth:     auth.NewAuthenticator(st, jwt),
		JWT:      jwt,
		Local:    auth.NewLocalProvider(st, jwt),
		Hub:      r.Hub,
		Logger:   r.Logger,
	}
	return g.Router(), r
}

func postJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAdmin(t *testing.T, router http.Handler) api.JwtResponse {
	t.Helper()
	rec := postJSON(t, router, "/auth/local/register", "", map[string]string{
		"username": "admin",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp api.JwtResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router, _ := newTestGateway(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	router, _ := newTestGateway(t)
	rec := postJSON(t, router, "/api", "", api.Request{Type: api.TypeListServers})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body api.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "no credentials")
}

func TestAPIRoundTrip(t *testing.T) {
	router, _ := newTestGateway(t)
	admin := registerAdmin(t, router)

	params, _ := json.Marshal(api.CreateServer{Name: "prod"})
	rec := postJSON(t, router, "/api", admin.Token, api.Request{Type: api.TypeCreateServer, Params: params})
	require.Equal(t, http.StatusOK, rec.Code)

	var server api.Server
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &server))
	assert.Equal(t, "prod", server.Name)

	// errors map to their kind's status with a trace envelope
	rec = postJSON(t, router, "/api", admin.Token, api.Request{Type: api.TypeCreateServer, Params: params})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body api.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Trace)

	params, _ = json.Marshal(api.GetServer{Server: "missing"})
	rec = postJSON(t, router, "/api", admin.Token, api.Request{Type: api.TypeGetServer, Params: params})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIRejectsMissingType(t *testing.T) {
	router, _ := newTestGateway(t)
	admin := registerAdmin(t, router)

	rec := postJSON(t, router, "/api", admin.Token, api.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	router, _ := newTestGateway(t)
	admin := registerAdmin(t, router)

	rec := postJSON(t, router, "/api", admin.Token, api.Request{Type: api.TypeListServers})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/auth/logout", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/api", admin.Token, api.Request{Type: api.TypeListServers})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	router, _ := newTestGateway(t)
	registerAdmin(t, router)

	rec := postJSON(t, router, "/auth/local/login", "", map[string]string{
		"username": "admin",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/auth/local/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package resolver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/auth"
	"github.com/marcoraddatz/komodo/internal/ws"
)

// Gateway is the core's HTTP surface: the typed request endpoint, the
// login endpoints, and the live channel.
type Gateway struct {
	Resolver *Resolver
	Auth     *auth.Authenticator
	JWT      *auth.JwtClient
	Local    *auth.LocalProvider
	OAuth    *auth.OAuthProvider
	Hub      *ws.Hub
	Logger   *slog.Logger
}

// Router builds the chi router for the core.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api", g.handleAPI)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/local/register", g.handleLocalRegister)
		r.Post("/local/login", g.handleLocalLogin)
		r.Post("/logout", g.handleLogout)
		if g.OAuth != nil {
			r.Get("/oauth/login", g.handleOAuthLogin)
			r.Get("/oauth/callback", g.handleOAuthCallback)
		}
	})

	if g.Hub != nil {
		r.Get("/ws", g.Hub.ServeHTTP)
	}

	return r
}

// handleAPI authenticates the caller, decodes the typed envelope, and
// runs the handler in its own goroutine so a panicking handler takes
// down one request, not the server.
func (g *Gateway) handleAPI(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := uuid.NewString()

	user, err := g.Auth.Authenticate(r)
	if err != nil {
		g.writeError(w, requestID, "", started, err)
		return
	}

	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, requestID, "", started, api.InvalidRequestf("failed to parse request body: %v", err))
		return
	}
	if req.Type == "" {
		g.writeError(w, requestID, "", started, api.InvalidRequestf("request type is required"))
		return
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				g.Logger.Error("handler panicked", "request_id", requestID, "type", req.Type, "panic", recovered)
				done <- outcome{err: api.Internalf("internal failure handling %s", req.Type)}
			}
		}()
		result, err := g.Resolver.Resolve(r.Context(), user, req)
		done <- outcome{result: result, err: err}
	}()

	out := <-done
	if out.err != nil {
		g.writeError(w, requestID, string(req.Type), started, out.err)
		return
	}

	g.Logger.Info("request resolved",
		"request_id", requestID, "type", req.Type,
		"user_id", user.ID, "elapsed", time.Since(started))
	writeJSON(w, http.StatusOK, out.result)
}

func (g *Gateway) writeError(w http.ResponseWriter, requestID, reqType string, started time.Time, err error) {
	kind := api.KindOf(err)
	status := api.HTTPStatus(kind)
	g.Logger.Warn("request failed",
		"request_id", requestID, "type", reqType,
		"kind", kind, "status", status,
		"elapsed", time.Since(started), "error", err)
	writeJSON(w, status, api.ErrorBodyOf(err))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (g *Gateway) handleLocalRegister(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeAuthError(w, api.InvalidRequestf("failed to parse request body: %v", err))
		return
	}
	resp, err := g.Local.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		g.writeAuthError(w, err)
		return
	}
	g.Logger.Info("user registered", "user_id", resp.User.ID, "username", resp.User.Username)
	writeJSON(w, http.StatusCreated, resp)
}

func (g *Gateway) handleLocalLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeAuthError(w, api.InvalidRequestf("failed to parse request body: %v", err))
		return
	}
	resp, err := g.Local.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		g.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		g.writeAuthError(w, api.Unauthenticatedf("no token provided"))
		return
	}
	token = strings.TrimPrefix(token, "Bearer ")
	if err := g.JWT.Revoke(r.Context(), token); err != nil {
		g.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (g *Gateway) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.Redirect(w, r, g.OAuth.LoginURL(state), http.StatusFound)
}

func (g *Gateway) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		g.writeAuthError(w, api.Unauthenticatedf("missing oauth code"))
		return
	}
	resp, err := g.OAuth.HandleCallback(r.Context(), code)
	if err != nil {
		g.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) writeAuthError(w http.ResponseWriter, err error) {
	kind := api.KindOf(err)
	g.Logger.Warn("auth request failed", "kind", kind, "error", err)
	writeJSON(w, api.HTTPStatus(kind), api.ErrorBodyOf(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to write response", "error", err)
	}
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/tokenlogin/internal/domain"
	"github.com/splax/tokenlogin/internal/service/auth"
	jwtpkg "github.com/splax/tokenlogin/pkg/jwt"
)

// Routes served by the token server.
const (
	RouteToken   = "/api/auth/token/"
	RouteMe      = "/api/auth/me/"
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"
)

const (
	healthCheckTimeout = 2 * time.Second
	maxBodyBytes       = 1 << 20

	msgFieldRequired  = "This field is required."
	msgFieldBlank     = "This field may not be blank."
	msgBadCredentials = "Unable to log in with provided credentials."
	msgNoCredentials  = "Authentication credentials were not provided."
	msgInvalidToken   = "Invalid token."
	msgInvalidHeader  = "Invalid token header. No credentials provided."
)

// AuthService is what the router needs from the auth layer.
type AuthService interface {
	ObtainToken(ctx context.Context, username, password string) (string, *domain.User, error)
	Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error)
}

// Options tune the router.
type Options struct {
	// Keyword prefixes tokens in the Authorization header. Defaults to "Bearer".
	Keyword     string
	LoginLimit  int
	LoginWindow time.Duration
	Limiter     RateLimiter
	Health      func(context.Context) error
	// Registry receives the router's collectors and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
}

// Router wires HTTP endpoints to the auth service.
type Router struct {
	mux         *chi.Mux
	logger      *slog.Logger
	auth        AuthService
	limiter     RateLimiter
	keyword     string
	loginLimit  int
	loginWindow time.Duration
	health      func(context.Context) error
	registry    *prometheus.Registry
	metrics     *routerMetrics
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc AuthService, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:         chi.NewRouter(),
		logger:      logger,
		auth:        authSvc,
		limiter:     opts.Limiter,
		keyword:     strings.TrimSpace(opts.Keyword),
		loginLimit:  opts.LoginLimit,
		loginWindow: opts.LoginWindow,
		health:      opts.Health,
		registry:    opts.Registry,
	}
	if r.keyword == "" {
		r.keyword = "Bearer"
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	r.metrics = newRouterMetrics(r.registry)
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.Recoverer)
	r.mux.Use(r.audit)

	token := r.instrument(RouteToken, r.withRateLimit(RouteToken, r.loginLimit, r.loginWindow, r.handleObtainToken))
	r.mux.Post(RouteToken, token)
	r.mux.Post(strings.TrimSuffix(RouteToken, "/"), token)
	r.mux.Get(RouteMe, r.instrument(RouteMe, r.handleMe))
	r.mux.Get(RouteHealthz, r.instrument(RouteHealthz, r.handleHealthz))
	r.mux.Method(http.MethodGet, RouteMetrics, promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", req.Method))
	})
	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
}

type tokenRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func (r *Router) handleObtainToken(w http.ResponseWriter, req *http.Request) {
	payload, err := decodeTokenRequest(w, req)
	if err != nil {
		r.recordTokenResult("bad_request")
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrs := validateTokenRequest(payload); len(fieldErrs) > 0 {
		r.recordTokenResult("bad_request")
		writeFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}
	token, user, err := r.auth.ObtainToken(req.Context(), *payload.Username, *payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			r.recordTokenResult("invalid_credentials")
			writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {msgBadCredentials}})
			return
		}
		r.recordTokenResult("error")
		r.logger.Error("obtain token failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	r.recordTokenResult("issued")
	r.logger.Debug("token issued", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func decodeTokenRequest(w http.ResponseWriter, req *http.Request) (tokenRequest, error) {
	var payload tokenRequest
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := req.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return payload, fmt.Errorf("Form parse error - %v", err)
		}
		if values, ok := req.PostForm["username"]; ok && len(values) > 0 {
			payload.Username = &values[0]
		}
		if values, ok := req.PostForm["password"]; ok && len(values) > 0 {
			payload.Password = &values[0]
		}
		return payload, nil
	default:
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err := dec.Decode(&payload); err != nil {
			return payload, fmt.Errorf("JSON parse error - %v", err)
		}
		return payload, nil
	}
}

func validateTokenRequest(payload tokenRequest) map[string][]string {
	errs := make(map[string][]string)
	check := func(name string, value *string) {
		switch {
		case value == nil:
			errs[name] = []string{msgFieldRequired}
		case *value == "":
			errs[name] = []string{msgFieldBlank}
		}
	}
	check("username", payload.Username)
	check("password", payload.Password)
	return errs
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	w.Header().Set("WWW-Authenticate", r.keyword)
	if header == "" {
		writeDetail(w, http.StatusUnauthorized, msgNoCredentials)
		return
	}
	parts := strings.Fields(header)
	if !strings.EqualFold(parts[0], r.keyword) {
		writeDetail(w, http.StatusUnauthorized, msgNoCredentials)
		return
	}
	if len(parts) != 2 {
		writeDetail(w, http.StatusUnauthorized, msgInvalidHeader)
		return
	}
	user, _, err := r.auth.Authorize(req.Context(), parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeDetail(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		r.logger.Error("authorize failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	w.Header().Del("WWW-Authenticate")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"is_staff":    user.IsStaff,
		"date_joined": user.DateJoined.UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.health != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.health(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := middleware.GetReqID(req.Context()); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

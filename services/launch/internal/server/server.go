package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackosaurus2014/spacehub-sub018/internal/usertoken"
	"github.com/jackosaurus2014/spacehub-sub018/internal/util"
	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/app"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/security"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	TokenVerifier  *usertoken.Verifier
	CORSOrigins    []string
	TrustedProxies *util.ProxyAllowlist
	// Alerter is optional.
	Alerter *security.AuditAlerter
}

// Server exposes HTTP endpoints for the launch service.
type Server struct {
	app            *app.App
	tokenVerifier  *usertoken.Verifier
	corsOrigins    []string
	trustedProxies *util.ProxyAllowlist
	alerter        *security.AuditAlerter
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:            cfg.App,
		tokenVerifier:  cfg.TokenVerifier,
		corsOrigins:    cfg.CORSOrigins,
		trustedProxies: cfg.TrustedProxies,
		alerter:        cfg.Alerter,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(s.corsOrigins, h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog("launch", s.trustedProxies, h)
	return util.WithRequestID(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	s.mux.HandleFunc("GET /api/events/{id}/status", s.handleEventStatus)
	s.mux.HandleFunc("GET /api/events/{id}/telemetry", s.handleTelemetry)
	s.mux.Handle("PATCH /api/events/{id}/control", s.withOperator(s.handleControl))

	s.mux.HandleFunc("GET /api/events/{id}/chat", s.handleListChat)
	s.mux.Handle("POST /api/events/{id}/chat", s.withUser(s.handlePostChat))
	s.mux.HandleFunc("GET /api/events/{id}/reactions", s.handleReactionSummary)
	s.mux.Handle("POST /api/events/{id}/reactions", s.withUser(s.handlePostReaction))

	s.mux.HandleFunc("GET /api/events/{id}/polls", s.handleListPolls)
	s.mux.Handle("POST /api/events/{id}/polls", s.withOperator(s.handleCreatePoll))
	s.mux.HandleFunc("GET /api/polls/{id}", s.handleGetPoll)
	s.mux.Handle("PATCH /api/polls/{id}", s.withOperator(s.handleSetPollActive))
	s.mux.Handle("POST /api/polls/{id}/votes", s.withUser(s.handleVote))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenVerifier == nil {
			writeError(w, http.StatusInternalServerError, "token verifier not configured")
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.tokenVerifier.VerifyUser(token)
		if err != nil {
			s.audit(r, "token_rejected", "failure", "err", err.Error())
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) withOperator(next userHandler) http.Handler {
	return s.withUser(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if !user.Role.CanOperate() {
			s.audit(r, "operator_action", "forbidden", "user_id", user.ID, "role", string(user.Role))
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := s.trustedProxies.ClientIP(r)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
	s.observe(r, event, outcome, ip)
}

// observe feeds the alerter and logs once when a threshold is crossed.
func (s *Server) observe(r *http.Request, event, outcome, ip string) {
	if s.alerter == nil {
		return
	}
	res, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	logger := util.LoggerFromContext(r.Context())
	if err != nil {
		logger.Warn("security alert counter failed", "event", event, "err", err)
		return
	}
	if res.Crossed() {
		logger.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", res.Count,
			"window", res.Window.String(),
		)
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

// writeAppError maps application errors onto HTTP statuses. Unknown errors
// are logged and hidden behind a generic message.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *app.RateLimitError
	switch {
	case errors.As(err, &rl):
		s.observe(r, "engagement", "rate_limited", s.trustedProxies.ClientIP(r))
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrEventNotFound), errors.Is(err, app.ErrPollNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

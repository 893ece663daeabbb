package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the data backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status, code := "ready", http.StatusOK

	if s.deps.Ready == nil {
		checks["backend"] = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			checks["backend"] = "failed"
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"checks":     checks,
		"rate_limit": s.limiter.GetMetrics(),
		"requests":   s.tracer.GetMetrics(),
	})
}

// handleProvision runs the login-time provisioning check for the caller.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		s.writeError(w, r, applog.OpProvision, err)
		return
	}
	res, err := s.deps.Provisioner.Run(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, applog.OpProvision, err)
		return
	}
	if res.Stats.Writes() > 0 {
		s.invalidateReports(owner)
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCreatePreference is the signup hook that makes a user provisionable.
func (s *Server) handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	var in services.PreferenceInput
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	pref, err := s.deps.Preferences.CreatePreference(r.Context(), owner, in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, pref)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Currencies.ListCurrencies(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	if list == nil {
		list = []core.Currency{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"currencies": list})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	limit, err := parseLimit(r, defaultNotificationLimit, maxNotificationLimit)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	list, err := s.deps.Notifications.ListNotifications(r.Context(), owner, limit)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	if list == nil {
		list = []core.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

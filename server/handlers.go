package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JeremyNoori/xdc-risk-monitor/ingest"
	"github.com/JeremyNoori/xdc-risk-monitor/settings"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

var (
	errUnauthorized   = errors.New("unauthorized")
	errInvalidRequest = errors.New("invalid request body")
	errInvalidKey     = errors.New("invalid setting key")
	errRunFailed      = errors.New("unable to run ingestion")
	errUnableToSave   = errors.New("unable to save setting")
)

// TriggerRun handles POST /api/jobs/run. The bearer credential is
// checked before the run gate, so an unauthorized trigger never
// consumes the gate or creates a run
func (s *Server) TriggerRun(w http.ResponseWriter, r *http.Request) {
	adminToken, err := s.auth.Resolve(r.Context(), settings.KeyAdminToken)
	if err != nil {
		// No admin token configured anywhere: the trigger stays closed
		writeError(w, http.StatusUnauthorized, errUnauthorized)

		return
	}

	if !matchBearer(r.Header.Get("Authorization"), adminToken) {
		writeError(w, http.StatusUnauthorized, errUnauthorized)

		return
	}

	summary, err := s.runner.TriggerRun(r.Context())
	if err != nil {
		var rateErr *ingest.RateLimitedError

		if errors.As(err, &rateErr) {
			writeJSON(w, http.StatusTooManyRequests, &RateLimitedResponse{
				Error:        "rate limited, try again later",
				RetryAfterMs: rateErr.RetryAfter.Milliseconds(),
			})

			return
		}

		s.logger.Error(
			"unable to trigger ingestion run",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errRunFailed)

		return
	}

	status := http.StatusOK
	if summary.Status == types.RunStatusFailed {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, summary)
}

// Health handles GET /health with a quick store connectivity check
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		s.logger.Debug(
			"storage unreachable",
			"err", err,
		)

		writeJSON(w, http.StatusServiceUnavailable, &HealthResponse{
			Status: "error",
			DB:     "disconnected",
		})

		return
	}

	writeJSON(w, http.StatusOK, &HealthResponse{
		Status: "ok",
		DB:     "connected",
	})
}

// Settings handles GET /api/settings. Values are never returned,
// only whether each key is configured and where it came from
func (s *Server) Settings(w http.ResponseWriter, r *http.Request) {
	stored, err := s.storage.ListSettings(r.Context())

	dbUnavailable := err != nil
	if dbUnavailable {
		s.logger.Debug(
			"unable to list stored settings",
			"err", err,
		)
	}

	statuses := make(map[string]SettingStatus, len(settings.Keys)+1)

	for _, key := range settings.Keys {
		switch {
		case stored[key] != "":
			statuses[key] = SettingStatus{Configured: true, Source: "database"}
		case s.env(key) != "":
			statuses[key] = SettingStatus{Configured: true, Source: "env"}
		default:
			statuses[key] = SettingStatus{Configured: false, Source: "none"}
		}
	}

	// The database URL bootstraps the store, so it is env-only
	if s.env(settings.KeyDatabaseURL) != "" {
		statuses[settings.KeyDatabaseURL] = SettingStatus{Configured: true, Source: "env"}
	} else {
		statuses[settings.KeyDatabaseURL] = SettingStatus{Configured: false, Source: "none"}
	}

	writeJSON(w, http.StatusOK, &SettingsResponse{
		Settings:      statuses,
		DBUnavailable: dbUnavailable,
	})
}

// SaveSetting handles POST /api/settings. An empty value deletes the
// stored setting, reverting lookups to the environment. The endpoint
// is open only while no admin token is configured (first-time setup)
func (s *Server) SaveSetting(w http.ResponseWriter, r *http.Request) {
	adminToken, err := s.auth.Resolve(r.Context(), settings.KeyAdminToken)
	if err == nil && !matchBearer(r.Header.Get("Authorization"), adminToken) {
		writeError(w, http.StatusUnauthorized, errUnauthorized)

		return
	}

	var req SaveSettingRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidRequest)

		return
	}

	if !isManagedKey(req.Key) {
		writeError(w, http.StatusBadRequest, errInvalidKey)

		return
	}

	if req.Value != "" {
		err = s.storage.SaveSetting(r.Context(), req.Key, req.Value)
	} else {
		err = s.storage.DeleteSetting(r.Context(), req.Key)
	}

	if err != nil {
		s.logger.Error(
			"unable to update setting",
			"key", req.Key,
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToSave)

		return
	}

	writeJSON(w, http.StatusOK, &SaveSettingResponse{
		OK:    true,
		Key:   req.Key,
		Saved: req.Value != "",
	})
}

// matchBearer checks an Authorization header against the expected
// token. The comparison is constant-time, so response latency leaks
// nothing about the token's contents
func matchBearer(header, token string) bool {
	scheme, value, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(value), []byte(token)) == 1
}

// isManagedKey reports whether the key is an application-managed setting
func isManagedKey(key string) bool {
	for _, managed := range settings.Keys {
		if key == managed {
			return true
		}
	}

	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}

package server

// HealthResponse reports service and store connectivity
type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

// RateLimitedResponse is returned when the run gate rejects a trigger
type RateLimitedResponse struct {
	Error        string `json:"error"`
	RetryAfterMs int64  `json:"retryAfterMs"`
}

// SettingStatus describes a single setting without exposing its value
type SettingStatus struct {
	Source     string `json:"source"`
	Configured bool   `json:"configured"`
}

// SettingsResponse is the masked settings listing
type SettingsResponse struct {
	Settings      map[string]SettingStatus `json:"settings"`
	DBUnavailable bool                     `json:"db_unavailable,omitempty"`
}

// SaveSettingRequest stores (or, with an empty value, deletes) a setting
type SaveSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SaveSettingResponse acknowledges a settings change
type SaveSettingResponse struct {
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
	Saved bool   `json:"saved"`
}

// ErrorResponse carries a request failure reason
type ErrorResponse struct {
	Error string `json:"error"`
}

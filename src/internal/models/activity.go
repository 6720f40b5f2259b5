package models

import "time"

// ActivityMessage is published to the events exchange whenever the auth
// subsystem does something worth auditing.
type ActivityMessage struct {
	UserID      string            `json:"user_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionRegistered     = "registered"
	ActionLoggedIn       = "logged_in"
	ActionTokenRefreshed = "token_refreshed"
	ActionLoggedOut      = "logged_out"
	ActionSessionCheck   = "session_check"
)

// Service name constants
const (
	ServiceAuthHandler    = "tasklist.handler.auth"
	ServiceAuthMiddleware = "tasklist.middleware.auth"
)

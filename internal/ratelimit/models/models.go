// Package models holds the rate limiting vocabulary shared by stores and
// middleware.
package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share a per-IP budget.
type EndpointClass string

const (
	// ClassRegistration covers sign-up and OTP routes.
	ClassRegistration EndpointClass = "registration"
	// ClassAuth covers login.
	ClassAuth EndpointClass = "auth"
)

// Policy is a request budget over a sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// SanitizeKeySegment escapes the key delimiter so a client-controlled value
// cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey is the bucket key for an IP within a class.
func IPKey(class EndpointClass, ip string) string {
	return "rl:ip:" + string(class) + ":" + SanitizeKeySegment(ip)
}

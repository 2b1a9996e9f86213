// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware and read by services.
//
// Usage in services:
//
//	candidateID := requestcontext.CandidateID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "admission/pkg/domain"
)

type (
	candidateIDKey   struct{}
	applicationIDKey struct{}
	sessionIDKey     struct{}
	tokenJTIKey      struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCandidateID   = candidateIDKey{}
	ContextKeyApplicationID = applicationIDKey{}
	ContextKeySessionID     = sessionIDKey{}
	ContextKeyTokenJTI      = tokenJTIKey{}
	ContextKeyClientIP      = clientIPKey{}
	ContextKeyUserAgent     = userAgentKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// CandidateID returns the authenticated candidate, or the nil ID.
func CandidateID(ctx context.Context) id.CandidateID {
	if v, ok := ctx.Value(ContextKeyCandidateID).(id.CandidateID); ok {
		return v
	}
	return id.CandidateID{}
}

// ApplicationID returns the authenticated candidate's login application ID.
func ApplicationID(ctx context.Context) id.ApplicationID {
	if v, ok := ctx.Value(ContextKeyApplicationID).(id.ApplicationID); ok {
		return v
	}
	return ""
}

// SessionID returns the session bound to the access token.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(ContextKeySessionID).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// TokenJTI returns the JWT ID of the presented access token.
func TokenJTI(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyTokenJTI).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal injects the authenticated principal in one call.
func WithPrincipal(ctx context.Context, candidateID id.CandidateID, applicationID id.ApplicationID, sessionID id.SessionID, jti string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyCandidateID, candidateID)
	ctx = context.WithValue(ctx, ContextKeyApplicationID, applicationID)
	ctx = context.WithValue(ctx, ContextKeySessionID, sessionID)
	ctx = context.WithValue(ctx, ContextKeyTokenJTI, jti)
	return ctx
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside of
// HTTP requests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

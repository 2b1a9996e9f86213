package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	id "admission/pkg/domain"
)

// resendLimiter throttles OTP issuance per application with a token bucket.
type resendLimiter struct {
	mu       sync.Mutex
	limiters map[id.ApplicationID]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newResendLimiter(interval time.Duration, burst int) *resendLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &resendLimiter{
		limiters: make(map[id.ApplicationID]*rate.Limiter),
		every:    limit,
		burst:    burst,
	}
}

func (l *resendLimiter) get(appID id.ApplicationID) *rate.Limiter {
	lim, ok := l.limiters[appID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[appID] = lim
	}
	return lim
}

// consume spends a token without checking it, so the first resend after
// registration waits a full interval.
func (l *resendLimiter) consume(appID id.ApplicationID, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(appID).AllowN(now, 1)
}

func (l *resendLimiter) allow(appID id.ApplicationID, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(appID).AllowN(now, 1)
}

// forget drops the bucket once the application is verified.
func (l *resendLimiter) forget(appID id.ApplicationID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, appID)
}

package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	SetHeader(name, value string)
	GetLastResponseStatus() int
}

// RegisterSteps registers per-IP throttling step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^my client IP is "([^"]*)"$`, steps.clientIP)
	ctx.Step(`^I send (\d+) failed login attempts$`, steps.failedLogins)
	ctx.Step(`^at least one attempt should return (\d+)$`, steps.someAttemptReturned)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) clientIP(ctx context.Context, ip string) error {
	s.tc.SetHeader("X-Forwarded-For", ip)
	return nil
}

func (s *ratelimitSteps) failedLogins(ctx context.Context, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST("/api/auth/login", map[string]any{
			"applicationId": "REG000000000000",
			"password":      "Wrong1234",
		}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) someAttemptReturned(ctx context.Context, status int) error {
	for _, got := range s.statuses {
		if got == status {
			return nil
		}
	}
	return fmt.Errorf("no attempt returned %d: %v", status, s.statuses)
}

package e2e

import (
	"github.com/cucumber/godog"

	"admission/e2e/steps/application"
	"admission/e2e/steps/auth"
	"admission/e2e/steps/common"
	"admission/e2e/steps/ratelimit"
	"admission/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	registration.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	application.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}

package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	PUT(path string, body any) error
	GET(path string, headers map[string]string) error
}

// RegisterSteps registers application workspace step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &applicationSteps{tc: tc}

	ctx.Step(`^I load my application$`, steps.load)
	ctx.Step(`^I update section "([^"]*)" with:$`, steps.updateSection)
	ctx.Step(`^I move to the next step$`, steps.nextStep)
	ctx.Step(`^I move to the previous step$`, steps.previousStep)
	ctx.Step(`^I jump to step (\d+)$`, steps.setStep)
	ctx.Step(`^I save my progress$`, steps.save)
	ctx.Step(`^I open the dashboard$`, steps.dashboard)
	ctx.Step(`^I submit the application$`, steps.submit)
	ctx.Step(`^I submit without accepting the declaration$`, steps.submitWithoutDeclaration)
	ctx.Step(`^I reset the application$`, steps.reset)
}

type applicationSteps struct {
	tc TestContext
}

func (s *applicationSteps) load(ctx context.Context) error {
	return s.tc.GET("/api/application/", nil)
}

func (s *applicationSteps) updateSection(ctx context.Context, section string, body *godog.DocString) error {
	var partial map[string]any
	if err := json.Unmarshal([]byte(body.Content), &partial); err != nil {
		return fmt.Errorf("invalid section JSON: %w", err)
	}
	return s.tc.PATCH("/api/application/sections/"+section, partial)
}

func (s *applicationSteps) nextStep(ctx context.Context) error {
	return s.tc.POST("/api/application/step/next", nil)
}

func (s *applicationSteps) previousStep(ctx context.Context) error {
	return s.tc.POST("/api/application/step/previous", nil)
}

func (s *applicationSteps) setStep(ctx context.Context, step int) error {
	return s.tc.PUT("/api/application/step", map[string]any{"step": step})
}

func (s *applicationSteps) save(ctx context.Context) error {
	return s.tc.POST("/api/application/save", nil)
}

func (s *applicationSteps) dashboard(ctx context.Context) error {
	return s.tc.GET("/api/application/dashboard", nil)
}

func (s *applicationSteps) submit(ctx context.Context) error {
	return s.tc.POST("/api/application/submit", map[string]any{
		"agreedToTerms":       true,
		"agreedToDeclaration": true,
	})
}

func (s *applicationSteps) reset(ctx context.Context) error {
	return s.tc.POST("/api/application/reset", nil)
}

func (s *applicationSteps) submitWithoutDeclaration(ctx context.Context) error {
	return s.tc.POST("/api/application/submit", map[string]any{"agreedToTerms": true})
}

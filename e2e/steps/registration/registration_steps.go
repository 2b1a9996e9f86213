package registration

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	SetApplicationID(appID string)
	GetApplicationID() string
	SetMobileNumber(mobile string)
	GetMobileNumber() string
	SetPassword(password string)
	FixedOTP() string
}

const defaultPassword = "Secret123"

// RegisterSteps registers candidate registration step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^I register a new candidate named "([^"]*)"$`, steps.registerCandidate)
	ctx.Step(`^I register again with the same mobile number$`, steps.registerDuplicate)
	ctx.Step(`^I verify the OTP$`, steps.verifyOTP)
	ctx.Step(`^I verify with OTP "([^"]*)"$`, steps.verifyWithCode)
	ctx.Step(`^I request a new OTP$`, steps.resendOTP)
	ctx.Step(`^I have a verified candidate account$`, steps.verifiedCandidate)
}

type registrationSteps struct {
	tc TestContext
}

func randomMobile() string {
	return fmt.Sprintf("9%09d", rand.IntN(1_000_000_000))
}

func (s *registrationSteps) register(name, mobile string) error {
	body := map[string]any{
		"fullName":        name,
		"email":           fmt.Sprintf("candidate%s@example.com", mobile),
		"mobileNumber":    mobile,
		"dateOfBirth":     "2006-04-15",
		"gender":          "female",
		"password":        defaultPassword,
		"confirmPassword": defaultPassword,
	}
	return s.tc.POST("/api/registration/register", body)
}

func (s *registrationSteps) registerCandidate(ctx context.Context, name string) error {
	mobile := randomMobile()
	if err := s.register(name, mobile); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("registration failed with %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	appID, err := s.tc.GetResponseField("applicationId")
	if err != nil {
		return err
	}
	s.tc.SetApplicationID(appID.(string))
	s.tc.SetMobileNumber(mobile)
	s.tc.SetPassword(defaultPassword)
	return nil
}

func (s *registrationSteps) registerDuplicate(ctx context.Context) error {
	return s.register("Duplicate Candidate", s.tc.GetMobileNumber())
}

func (s *registrationSteps) verifyOTP(ctx context.Context) error {
	return s.verifyWithCode(ctx, s.tc.FixedOTP())
}

func (s *registrationSteps) verifyWithCode(ctx context.Context, code string) error {
	return s.tc.POST("/api/registration/verify-otp", map[string]any{
		"applicationId": s.tc.GetApplicationID(),
		"otp":           code,
	})
}

func (s *registrationSteps) resendOTP(ctx context.Context) error {
	return s.tc.POST("/api/registration/resend-otp", map[string]any{
		"applicationId": s.tc.GetApplicationID(),
		"mobileNo":      s.tc.GetMobileNumber(),
	})
}

func (s *registrationSteps) verifiedCandidate(ctx context.Context) error {
	if err := s.registerCandidate(ctx, "Asha Patil"); err != nil {
		return err
	}
	if err := s.verifyOTP(ctx); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("OTP verification failed with %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	return nil
}

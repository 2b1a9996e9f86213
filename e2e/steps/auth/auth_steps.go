package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetApplicationID() string
	GetPassword() string
	GetAccessToken() string
	SetAccessToken(token string)
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I log in$`, steps.login)
	ctx.Step(`^I log in with remember me$`, steps.loginRememberMe)
	ctx.Step(`^I log in with password "([^"]*)"$`, steps.loginWithPassword)
	ctx.Step(`^I am logged in$`, steps.loggedIn)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I request my profile$`, steps.me)
	ctx.Step(`^I request my profile with the old token$`, steps.meWithOldToken)
}

type authSteps struct {
	tc       TestContext
	oldToken string
}

func (s *authSteps) doLogin(password string, rememberMe bool) error {
	s.tc.SetAccessToken("")
	if err := s.tc.POST("/api/auth/login", map[string]any{
		"applicationId": s.tc.GetApplicationID(),
		"password":      password,
		"rememberMe":    rememberMe,
	}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(token.(string))
	return nil
}

func (s *authSteps) login(ctx context.Context) error {
	return s.doLogin(s.tc.GetPassword(), false)
}

func (s *authSteps) loginRememberMe(ctx context.Context) error {
	return s.doLogin(s.tc.GetPassword(), true)
}

func (s *authSteps) loginWithPassword(ctx context.Context, password string) error {
	return s.doLogin(password, false)
}

func (s *authSteps) loggedIn(ctx context.Context) error {
	if err := s.login(ctx); err != nil {
		return err
	}
	if s.tc.GetAccessToken() == "" {
		return fmt.Errorf("login failed with status %d", s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *authSteps) logout(ctx context.Context) error {
	s.oldToken = s.tc.GetAccessToken()
	if err := s.tc.POST("/api/auth/logout", nil); err != nil {
		return err
	}
	s.tc.SetAccessToken("")
	return nil
}

func (s *authSteps) me(ctx context.Context) error {
	return s.tc.GET("/api/auth/me", nil)
}

func (s *authSteps) meWithOldToken(ctx context.Context) error {
	return s.tc.GET("/api/auth/me", map[string]string{"Authorization": "Bearer " + s.oldToken})
}

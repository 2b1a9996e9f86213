package models

import (
	"strings"

	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
)

// TokenStorage tells the client where to keep the access token.
type TokenStorage string

const (
	// StorageSession keeps the token for the browser session only.
	StorageSession TokenStorage = "session"
	// StorageLocal persists the token across browser restarts (remember me).
	StorageLocal TokenStorage = "local"
)

type LoginRequest struct {
	ApplicationID string `json:"applicationId"`
	Password      string `json:"password"`
	RememberMe    bool   `json:"rememberMe"`
}

// Validate checks presence only; credentials are checked by the service.
func (r *LoginRequest) Validate() error {
	r.ApplicationID = strings.TrimSpace(r.ApplicationID)
	if r.ApplicationID == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "application ID and password are required")
	}
	return nil
}

// User is the candidate profile returned at login.
type User struct {
	ApplicationID id.ApplicationID `json:"applicationId"`
	FullName      string           `json:"fullName"`
	Email         string           `json:"email"`
	MobileNumber  string           `json:"mobileNumber"`
}

type LoginResponse struct {
	Success   bool         `json:"success"`
	Token     string       `json:"token"`
	User      User         `json:"user"`
	Message   string       `json:"message"`
	ExpiresIn int64        `json:"expiresIn"`
	Storage   TokenStorage `json:"storage"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

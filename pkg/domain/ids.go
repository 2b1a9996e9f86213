package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "admission/pkg/domain-errors"
)

// CandidateID identifies a registered candidate internally.
type CandidateID uuid.UUID

// SessionID identifies a login session (one per issued access token).
type SessionID uuid.UUID

// ApplicationID is the public candidate-facing identifier: the login ID handed
// out at registration and the number minted at submission share this format,
// e.g. CAP202512345678.
type ApplicationID string

var applicationIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{12}$`)

func (c CandidateID) String() string { return uuid.UUID(c).String() }
func (c CandidateID) IsNil() bool    { return uuid.UUID(c) == uuid.Nil }
func (s SessionID) String() string   { return uuid.UUID(s).String() }
func (s SessionID) IsNil() bool      { return uuid.UUID(s) == uuid.Nil }

func (a ApplicationID) String() string { return string(a) }
func (a ApplicationID) IsNil() bool    { return a == "" }

// ParseCandidateID parses a non-nil UUID.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s)
	return CandidateID(u), err
}

// ParseSessionID parses a non-nil UUID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	return SessionID(u), err
}

// ParseApplicationID validates an application ID received from a client.
// Surrounding whitespace is ignored; letters are upper-cased.
func ParseApplicationID(s string) (ApplicationID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "application ID is required")
	}
	if !applicationIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid application ID")
	}
	return ApplicationID(s), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "ID cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ID")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "ID cannot be nil")
	}
	return u, nil
}

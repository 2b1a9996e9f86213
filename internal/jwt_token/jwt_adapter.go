package jwttoken

import (
	"admission/internal/platform/middleware"
	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
)

// ToMiddlewareClaims parses the string claims into typed IDs.
func ToMiddlewareClaims(claims *Claims) (*middleware.TokenClaims, error) {
	candidateID, err := id.ParseCandidateID(claims.CandidateID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid candidate claim")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session claim")
	}
	applicationID, err := id.ParseApplicationID(claims.ApplicationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid application claim")
	}
	return &middleware.TokenClaims{
		CandidateID:   candidateID,
		ApplicationID: applicationID,
		SessionID:     sessionID,
		JTI:           claims.ID,
	}, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}

package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "admission/pkg/domain"
	"admission/pkg/requestcontext"
)

// WithCandidate attaches an authenticated principal to the request the way the
// auth middleware would, minting fresh candidate and session IDs.
func WithCandidate(req *http.Request, applicationID string) (*http.Request, id.CandidateID) {
	candidateID := id.CandidateID(uuid.New())
	ctx := requestcontext.WithPrincipal(req.Context(), candidateID,
		id.ApplicationID(applicationID), id.SessionID(uuid.New()), uuid.NewString())
	return req.WithContext(ctx), candidateID
}

// WithPrincipal attaches a known principal.
func WithPrincipal(req *http.Request, candidateID id.CandidateID, applicationID string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), candidateID,
		id.ApplicationID(applicationID), id.SessionID(uuid.New()), uuid.NewString())
	return req.WithContext(ctx)
}

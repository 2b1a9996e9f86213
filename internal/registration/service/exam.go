package service

import (
	"context"
	"regexp"
	"strings"

	"admission/internal/registration/models"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/requestcontext"
)

var rollNumberPattern = regexp.MustCompile(`^[0-9]{10}$`)

const (
	examYearWindow = 2
	neetMaxScore   = 720
)

// ValidateExam checks qualifying exam details against the local rules. A
// rejected exam is reported as a remote validation failure.
func (s *Service) ValidateExam(ctx context.Context, req models.ValidateExamRequest) (*models.ValidateExamResponse, error) {
	now := requestcontext.Now(ctx)
	req.ExamType = models.ExamType(strings.ToUpper(strings.TrimSpace(string(req.ExamType))))
	req.RollNumber = strings.TrimSpace(req.RollNumber)

	if msg := checkExam(req, now.Year()); msg != "" {
		s.logger.InfoContext(ctx, "exam details rejected",
			"request_id", requestcontext.RequestID(ctx),
			"exam_type", req.ExamType,
			"reason", msg,
		)
		return nil, dErrors.New(dErrors.CodeRemoteValidation, msg)
	}
	return &models.ValidateExamResponse{Success: true, IsValid: true, Message: "Exam details verified"}, nil
}

func checkExam(req models.ValidateExamRequest, year int) string {
	if req.ExamType != models.ExamMHTCET && req.ExamType != models.ExamNEET {
		return "exam type must be MHT-CET or NEET"
	}
	if !rollNumberPattern.MatchString(req.RollNumber) {
		return "roll number must be 10 digits"
	}
	if req.Year < year-examYearWindow || req.Year > year {
		return "exam year is outside the accepted window"
	}
	if req.Percentile != nil && (*req.Percentile < 0 || *req.Percentile > 100) {
		return "percentile must be between 0 and 100"
	}
	if req.ExamType == models.ExamNEET {
		if req.Score == nil {
			return "NEET score is required"
		}
		if *req.Score < 0 || *req.Score > neetMaxScore {
			return "NEET score must be between 0 and 720"
		}
	}
	return ""
}

package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	id "admission/pkg/domain"
	dErrors "admission/pkg/domain-errors"
	"admission/pkg/platform/sentinel"
)

// Candidate is a registered applicant. The ApplicationID is the login
// identifier handed out at registration.
type Candidate struct {
	ID            id.CandidateID
	ApplicationID id.ApplicationID
	FullName      string
	Email         string
	MobileNumber  string
	DateOfBirth   string
	Gender        string
	PasswordHash  string
	Verified      bool
	VerifiedAt    *time.Time
	CreatedAt     time.Time
}

// OTP is an issued one-time password. Only the bcrypt hash is kept.
type OTP struct {
	ApplicationID id.ApplicationID `json:"applicationId"`
	CodeHash      string           `json:"codeHash"`
	IssuedAt      time.Time        `json:"issuedAt"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	Attempts      int              `json:"attempts"`
}

// IsExpired reports whether the OTP can no longer be used at now.
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

var (
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
	genders       = map[string]bool{"male": true, "female": true, "other": true}
)

// NormalizeMobile strips spaces and an optional +91 or leading 0.
func NormalizeMobile(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimPrefix(s, "+91")
	if len(s) == 11 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	MobileNumber    string `json:"mobileNumber"`
	DateOfBirth     string `json:"dateOfBirth"`
	Gender          string `json:"gender"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Normalize trims inputs and canonicalises email and mobile.
func (r *RegisterRequest) Normalize() {
	r.FullName = strings.Join(strings.Fields(r.FullName), " ")
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.MobileNumber = NormalizeMobile(r.MobileNumber)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
}

// Validate checks the form. dateOfBirth is YYYY-MM-DD and the candidate must
// be at least minAge on now.
func (r *RegisterRequest) Validate(now time.Time) error {
	if !govalidator.StringLength(r.FullName, "2", "100") {
		return dErrors.New(dErrors.CodeValidation, "full name must be 2-100 characters")
	}
	if !govalidator.StringLength(r.Email, "3", "255") || !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if !mobilePattern.MatchString(r.MobileNumber) {
		return dErrors.New(dErrors.CodeValidation, "mobile number must be 10 digits starting with 6-9")
	}
	dob, err := time.Parse(time.DateOnly, r.DateOfBirth)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date of birth must be YYYY-MM-DD")
	}
	if dob.AddDate(minAge, 0, 0).After(now) {
		return dErrors.New(dErrors.CodeValidation, "candidate must be at least 16 years old")
	}
	if !genders[r.Gender] {
		return dErrors.New(dErrors.CodeValidation, "gender must be male, female or other")
	}
	if !govalidator.StringLength(r.Password, "8", "72") {
		return dErrors.New(dErrors.CodeValidation, "password must be 8-72 characters")
	}
	if !strings.ContainsAny(r.Password, "0123456789") || strings.ToLower(r.Password) == r.Password {
		return dErrors.New(dErrors.CodeValidation, "password needs a digit and an upper-case letter")
	}
	if r.Password != r.ConfirmPassword {
		return dErrors.New(dErrors.CodeValidation, "passwords do not match")
	}
	return nil
}

const minAge = 16

type RegisterResponse struct {
	Success       bool             `json:"success"`
	ApplicationID id.ApplicationID `json:"applicationId"`
	MobileNumber  string           `json:"mobileNumber"`
	Email         string           `json:"email"`
	Message       string           `json:"message"`
}

type VerifyOTPRequest struct {
	ApplicationID string `json:"applicationId"`
	OTP           string `json:"otp"`
}

// CheckShape rejects anything but exactly six digits. It runs before any
// lookup.
func (r VerifyOTPRequest) CheckShape() error {
	if !otpPattern.MatchString(r.OTP) {
		return dErrors.New(dErrors.CodeMalformedOTP, "OTP must be exactly 6 digits")
	}
	return nil
}

type VerifyOTPResponse struct {
	Success  bool   `json:"success"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

type ResendOTPRequest struct {
	ApplicationID string `json:"applicationId"`
	MobileNo      string `json:"mobileNo"`
}

type ResendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ExamType is a qualifying entrance exam.
type ExamType string

const (
	ExamMHTCET ExamType = "MHT-CET"
	ExamNEET   ExamType = "NEET"
)

type ValidateExamRequest struct {
	ExamType   ExamType `json:"examType"`
	RollNumber string   `json:"rollNumber"`
	Year       int      `json:"year"`
	Percentile *float64 `json:"percentile,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

type ValidateExamResponse struct {
	Success bool   `json:"success"`
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// ErrApplicationIDTaken is returned by candidate stores when a freshly
// minted registration ID already exists. Callers mint a new one.
var ErrApplicationIDTaken = fmt.Errorf("application id taken: %w", sentinel.ErrConflict)

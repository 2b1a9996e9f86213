package models

import (
	"encoding/json"
	"maps"
	"reflect"
	"time"

	dErrors "admission/pkg/domain-errors"
)

// SectionName identifies one of the wizard's section records.
type SectionName string

const (
	SectionPersonal       SectionName = "personal"
	SectionFamily         SectionName = "family"
	SectionCategory       SectionName = "category"
	SectionQualifyingExam SectionName = "exam"
	SectionHSC            SectionName = "hsc"
	SectionSSC            SectionName = "ssc"
	SectionAdditional     SectionName = "additional"
	SectionAddress        SectionName = "address"
	SectionBank           SectionName = "bank"
	SectionDocuments      SectionName = "documents"
)

// AllSections lists sections in wizard order.
var AllSections = []SectionName{
	SectionPersonal, SectionFamily, SectionCategory,
	SectionQualifyingExam, SectionHSC, SectionSSC,
	SectionAdditional, SectionAddress, SectionBank, SectionDocuments,
}

// ParseSectionName validates a section name from a URL or request body.
func ParseSectionName(s string) (SectionName, error) {
	for _, name := range AllSections {
		if string(name) == s {
			return name, nil
		}
	}
	return "", dErrors.New(dErrors.CodeNotFound, "unknown section: "+s)
}

// Every section field is a pointer: nil means "not supplied". Merging copies
// only non-nil fields, so a partial never clears a value.

type Personal struct {
	FullName      *string `json:"fullName,omitempty"`
	FatherName    *string `json:"fatherName,omitempty"`
	MotherName    *string `json:"motherName,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	Email         *string `json:"email,omitempty"`
	MobileNumber  *string `json:"mobileNumber,omitempty"`
	AadharNumber  *string `json:"aadharNumber,omitempty"`
	Nationality   *string `json:"nationality,omitempty"`
	Religion      *string `json:"religion,omitempty"`
	MotherTongue  *string `json:"motherTongue,omitempty"`
	PlaceOfBirth  *string `json:"placeOfBirth,omitempty"`
	MaritalStatus *string `json:"maritalStatus,omitempty"`
}

type Family struct {
	FatherOccupation *string `json:"fatherOccupation,omitempty"`
	MotherOccupation *string `json:"motherOccupation,omitempty"`
	AnnualIncome     *string `json:"annualIncome,omitempty"`
	GuardianName     *string `json:"guardianName,omitempty"`
	GuardianRelation *string `json:"guardianRelation,omitempty"`
	GuardianMobile   *string `json:"guardianMobile,omitempty"`
}

type Category struct {
	Category                 *string `json:"category,omitempty"`
	CasteName                *string `json:"casteName,omitempty"`
	CasteCertificateNumber   *string `json:"casteCertificateNumber,omitempty"`
	NonCreamyLayer           *bool   `json:"nonCreamyLayer,omitempty"`
	NonCreamyLayerCertNumber *string `json:"nonCreamyLayerCertNumber,omitempty"`
	EWSCertificate           *bool   `json:"ewsCertificate,omitempty"`
	IsPwd                    *bool   `json:"isPwd,omitempty"`
	PwdType                  *string `json:"pwdType,omitempty"`
	IsDefence                *bool   `json:"isDefence,omitempty"`
	IsOrphan                 *bool   `json:"isOrphan,omitempty"`
	IsMinority               *bool   `json:"isMinority,omitempty"`
	MinorityType             *string `json:"minorityType,omitempty"`
}

type QualifyingExam struct {
	MHTCETAppeared   *bool   `json:"mhtcetAppeared,omitempty"`
	MHTCETRollNumber *string `json:"mhtcetRollNumber,omitempty"`
	MHTCETPhysics    *string `json:"mhtcetPhysics,omitempty"`
	MHTCETChemistry  *string `json:"mhtcetChemistry,omitempty"`
	MHTCETMaths      *string `json:"mhtcetMaths,omitempty"`
	MHTCETBiology    *string `json:"mhtcetBiology,omitempty"`
	MHTCETPercentile *string `json:"mhtcetPercentile,omitempty"`
	NEETAppeared     *bool   `json:"neetAppeared,omitempty"`
	NEETRollNumber   *string `json:"neetRollNumber,omitempty"`
	NEETScore        *string `json:"neetScore,omitempty"`
	NEETPercentile   *string `json:"neetPercentile,omitempty"`
}

type HSC struct {
	Board      *string `json:"hscBoard,omitempty"`
	Year       *string `json:"hscYear,omitempty"`
	SeatNumber *string `json:"hscSeatNumber,omitempty"`
	Physics    *string `json:"hscPhysics,omitempty"`
	Chemistry  *string `json:"hscChemistry,omitempty"`
	Maths      *string `json:"hscMaths,omitempty"`
	Biology    *string `json:"hscBiology,omitempty"`
	English    *string `json:"hscEnglish,omitempty"`
	MarksOutOf *string `json:"hscMarksOutOf,omitempty"`
	TotalMarks *string `json:"hscTotalMarks,omitempty"`
	Percentage *string `json:"hscPercentage,omitempty"`
}

type SSC struct {
	Board      *string `json:"sscBoard,omitempty"`
	Year       *string `json:"sscYear,omitempty"`
	SeatNumber *string `json:"sscSeatNumber,omitempty"`
	TotalMarks *string `json:"sscTotalMarks,omitempty"`
	MarksOutOf *string `json:"sscMarksOutOf,omitempty"`
	Percentage *string `json:"sscPercentage,omitempty"`
}

type Additional struct {
	IsLinguisticMinority *bool   `json:"isLinguisticMinority,omitempty"`
	LinguisticMinority   *string `json:"linguisticMinority,omitempty"`
	IsReligiousMinority  *bool   `json:"isReligiousMinority,omitempty"`
	HasGap               *bool   `json:"hasGap,omitempty"`
	GapReason            *string `json:"gapReason,omitempty"`
	ExtraCurricular      *string `json:"extraCurricular,omitempty"`
	SportsQuota          *bool   `json:"sportsQuota,omitempty"`
}

type Address struct {
	PermanentAddress  *string `json:"permanentAddress,omitempty"`
	PermanentState    *string `json:"permanentState,omitempty"`
	PermanentDistrict *string `json:"permanentDistrict,omitempty"`
	PermanentTaluka   *string `json:"permanentTaluka,omitempty"`
	PermanentVillage  *string `json:"permanentVillage,omitempty"`
	PermanentPincode  *string `json:"permanentPincode,omitempty"`

	IsSameAsPermanent *bool `json:"isSameAsPermanent,omitempty"`

	CorrespondenceAddress  *string `json:"correspondenceAddress,omitempty"`
	CorrespondenceState    *string `json:"correspondenceState,omitempty"`
	CorrespondenceDistrict *string `json:"correspondenceDistrict,omitempty"`
	CorrespondenceTaluka   *string `json:"correspondenceTaluka,omitempty"`
	CorrespondenceVillage  *string `json:"correspondenceVillage,omitempty"`
	CorrespondencePincode  *string `json:"correspondencePincode,omitempty"`
}

// copyPermanentToCorrespondence is a one-shot copy: the correspondence fields
// get their own values, so later permanent edits do not follow.
func (a *Address) copyPermanentToCorrespondence() {
	a.CorrespondenceAddress = clonePtr(a.PermanentAddress)
	a.CorrespondenceState = clonePtr(a.PermanentState)
	a.CorrespondenceDistrict = clonePtr(a.PermanentDistrict)
	a.CorrespondenceTaluka = clonePtr(a.PermanentTaluka)
	a.CorrespondenceVillage = clonePtr(a.PermanentVillage)
	a.CorrespondencePincode = clonePtr(a.PermanentPincode)
}

type Bank struct {
	AccountHolderName *string `json:"accountHolderName,omitempty"`
	AccountNumber     *string `json:"accountNumber,omitempty"`
	IFSCCode          *string `json:"ifscCode,omitempty"`
	BankName          *string `json:"bankName,omitempty"`
	BranchName        *string `json:"branchName,omitempty"`
}

// DocumentRef points at an uploaded file. Content is not kept here.
type DocumentRef struct {
	FileName    string    `json:"fileName,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt,omitzero"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// UnmarshalJSON accepts either a reference object or a bare string
// placeholder such as "pending-upload".
func (d *DocumentRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DocumentRef{Placeholder: s}
		return nil
	}
	type plain DocumentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = DocumentRef(p)
	return nil
}

// Documents maps a document key (photograph, sscMarksheet, ...) to its ref.
type Documents map[string]DocumentRef

// Sections is the full set of section records of one application.
type Sections struct {
	Personal       Personal       `json:"personal"`
	Family         Family         `json:"family"`
	Category       Category       `json:"category"`
	QualifyingExam QualifyingExam `json:"exam"`
	HSC            HSC            `json:"hsc"`
	SSC            SSC            `json:"ssc"`
	Additional     Additional     `json:"additional"`
	Address        Address        `json:"address"`
	Bank           Bank           `json:"bank"`
	Documents      Documents      `json:"documents"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Sections) Clone() Sections {
	out := s
	out.Documents = maps.Clone(s.Documents)
	return out
}

// IsFilled reports whether a section holds at least one key. It is a weak
// proxy for "valid": a single stray field satisfies it.
func (s Sections) IsFilled(name SectionName) bool {
	switch name {
	case SectionPersonal:
		return hasAnyField(s.Personal)
	case SectionFamily:
		return hasAnyField(s.Family)
	case SectionCategory:
		return hasAnyField(s.Category)
	case SectionQualifyingExam:
		return hasAnyField(s.QualifyingExam)
	case SectionHSC:
		return hasAnyField(s.HSC)
	case SectionSSC:
		return hasAnyField(s.SSC)
	case SectionAdditional:
		return hasAnyField(s.Additional)
	case SectionAddress:
		return hasAnyField(s.Address)
	case SectionBank:
		return hasAnyField(s.Bank)
	case SectionDocuments:
		return len(s.Documents) > 0
	}
	return false
}

// mergeFields copies every non-nil pointer field of src onto dst. Both must be
// pointers to the same struct type.
func mergeFields(dst, src any) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	for i := 0; i < sv.NumField(); i++ {
		f := sv.Field(i)
		if f.Kind() == reflect.Pointer && !f.IsNil() {
			dv.Field(i).Set(f)
		}
	}
}

func hasAnyField(v any) bool {
	rv := reflect.ValueOf(v)
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.Pointer && !f.IsNil() {
			return true
		}
	}
	return false
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr is a small helper for building partials.
func Ptr[T any](v T) *T {
	return &v
}

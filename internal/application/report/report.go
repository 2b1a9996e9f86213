// Package report projects an application into the printable Acknowledgement
// and FullApplication reports. Both kinds read the same View and share a
// section order; they differ only in title, document framing and the
// office-use block.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"admission/internal/application/models"
	dErrors "admission/pkg/domain-errors"
)

type Kind string

const (
	KindAcknowledgement Kind = "acknowledgement"
	KindFullApplication Kind = "application"
)

// ParseKind accepts the URL form of a report kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindAcknowledgement:
		return KindAcknowledgement, nil
	case KindFullApplication:
		return KindFullApplication, nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "unknown report: "+s)
}

const notAvailable = "N/A"

// Table keys in report order.
const (
	TablePersonal      = "personal"
	TableQualification = "qualification"
	TableMHTCET        = "mhtcet"
	TableNEET          = "neet"
	TableDocuments     = "documents"
	TableDeclaration   = "declaration"
)

// Table is one titled block of a report.
type Table struct {
	Key    string     `json:"key"`
	Title  string     `json:"title"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Report is the structured projection, independent of rendering.
type Report struct {
	Kind          Kind       `json:"kind"`
	Title         string     `json:"title"`
	ApplicationID string     `json:"applicationId"`
	CandidateName string     `json:"candidateName"`
	SubmittedAt   string     `json:"submittedAt"`
	Tables        []Table    `json:"tables"`
	OfficeUse     *OfficeUse `json:"officeUse,omitempty"`
}

// OfficeUse is the confirmation block printed only on the acknowledgement.
type OfficeUse struct {
	Status     string   `json:"status"`
	Signatures []string `json:"signatures"`
}

// Table returns the table with key, or nil.
func (r *Report) Table(key string) *Table {
	for i := range r.Tables {
		if r.Tables[i].Key == key {
			return &r.Tables[i]
		}
	}
	return nil
}

// View is the read-only input to Project.
type View struct {
	Sections      models.Sections
	Completed     bool
	ApplicationID string
	SubmittedAt   time.Time
	Consents      models.Consents
}

// ViewOf captures app as a View.
func ViewOf(app *models.Application) View {
	v := View{Sections: app.Sections(), Completed: app.IsCompleted()}
	if sub := app.Submitted(); sub != nil {
		v.ApplicationID = sub.ApplicationID().String()
		v.SubmittedAt = sub.SubmittedAt()
		v.Consents = sub.Consents()
	}
	return v
}

// Project builds the report. The acknowledgement exists only for a
// submitted application; the full application can also preview a draft.
func Project(v View, kind Kind) (*Report, error) {
	if kind == KindAcknowledgement && !v.Completed {
		return nil, dErrors.New(dErrors.CodeConflict, "acknowledgement is available after submission")
	}
	if kind != KindAcknowledgement && kind != KindFullApplication {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown report: "+string(kind))
	}

	r := &Report{
		Kind:          kind,
		ApplicationID: orDefault(v.ApplicationID, "DRAFT"),
		CandidateName: text(v.Sections.Personal.FullName),
		SubmittedAt:   notAvailable,
	}
	if !v.SubmittedAt.IsZero() {
		r.SubmittedAt = v.SubmittedAt.UTC().Format(time.RFC3339)
	}

	s := v.Sections
	r.Tables = []Table{
		personalTable(s),
		qualificationTable(s),
		mhtcetTable(s.QualifyingExam),
		neetTable(s.QualifyingExam),
		documentsTable(s.Documents, kind),
		declarationTable(v),
	}

	switch kind {
	case KindAcknowledgement:
		r.Title = "Application Acknowledgement Receipt"
		r.OfficeUse = &OfficeUse{
			Status:     "Application submitted successfully",
			Signatures: []string{"Verified by (Name & Signature)", "Date", "Seal of Facilitation Centre"},
		}
	case KindFullApplication:
		r.Title = "Application Form"
	}
	return r, nil
}

func personalTable(s models.Sections) Table {
	p, c, a := s.Personal, s.Category, s.Address
	return Table{
		Key:    TablePersonal,
		Title:  "Personal Details",
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Full Name", text(p.FullName)},
			{"Father's Name", text(p.FatherName)},
			{"Mother's Name", text(p.MotherName)},
			{"Date of Birth", text(p.DateOfBirth)},
			{"Gender", text(p.Gender)},
			{"Email", text(p.Email)},
			{"Mobile Number", text(p.MobileNumber)},
			{"Aadhar Number", text(p.AadharNumber)},
			{"Nationality", text(p.Nationality)},
			{"Category", text(c.Category)},
			{"Annual Family Income", number(s.Family.AnnualIncome)},
			{"Permanent Address", joinNonEmpty(a.PermanentAddress, a.PermanentVillage, a.PermanentTaluka, a.PermanentDistrict, a.PermanentState, a.PermanentPincode)},
			{"Correspondence Address", joinNonEmpty(a.CorrespondenceAddress, a.CorrespondenceVillage, a.CorrespondenceTaluka, a.CorrespondenceDistrict, a.CorrespondenceState, a.CorrespondencePincode)},
		},
	}
}

func qualificationTable(s models.Sections) Table {
	h := s.HSC
	rows := [][]string{
		subjectRow("Physics", h.Physics),
		subjectRow("Chemistry", h.Chemistry),
		subjectRow("Mathematics", h.Maths),
		subjectRow("Biology", h.Biology),
		subjectRow("English", h.English),
		{"PCM Total", sumAll(h.Physics, h.Chemistry, h.Maths), "300", notAvailable},
		{"PCB Total", sumAll(h.Physics, h.Chemistry, h.Biology), "300", notAvailable},
		{"HSC Total", number(h.TotalMarks), number(h.MarksOutOf), number(h.Percentage)},
		{"SSC Total", number(s.SSC.TotalMarks), number(s.SSC.MarksOutOf), number(s.SSC.Percentage)},
	}
	return Table{
		Key:    TableQualification,
		Title:  fmt.Sprintf("Qualification Details (HSC: %s %s, SSC: %s %s)", text(h.Board), text(h.Year), text(s.SSC.Board), text(s.SSC.Year)),
		Header: []string{"Subject", "Marks Obtained", "Out Of", "Percentage"},
		Rows:   rows,
	}
}

// subjectRow reports a subject scored out of 100. The percentage divides by
// the literal 100 regardless of the recorded hscMarksOutOf.
// TODO: confirm with admissions whether hscMarksOutOf should be the divisor.
func subjectRow(label string, marks *string) []string {
	return []string{label, number(marks), "100", percentOf(marks)}
}

func mhtcetTable(e models.QualifyingExam) Table {
	return Table{
		Key:    TableMHTCET,
		Title:  "MHT-CET Details",
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Appeared", yesNo(e.MHTCETAppeared)},
			{"Roll Number", text(e.MHTCETRollNumber)},
			{"Physics", number(e.MHTCETPhysics)},
			{"Chemistry", number(e.MHTCETChemistry)},
			{"Mathematics", number(e.MHTCETMaths)},
			{"Biology", number(e.MHTCETBiology)},
			{"Percentile", number(e.MHTCETPercentile)},
		},
	}
}

func neetTable(e models.QualifyingExam) Table {
	return Table{
		Key:    TableNEET,
		Title:  "NEET Details",
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Appeared", yesNo(e.NEETAppeared)},
			{"Roll Number", text(e.NEETRollNumber)},
			{"Score", number(e.NEETScore)},
			{"Percentile", number(e.NEETPercentile)},
		},
	}
}

type documentLine struct {
	key   string
	label string
}

var (
	baseDocuments = []documentLine{
		{"photograph", "Photograph"},
		{"signature", "Signature"},
		{"sscMarksheet", "SSC Marksheet"},
		{"hscMarksheet", "HSC Marksheet"},
		{"mhtcetScorecard", "MHT-CET Scorecard"},
		{"neetScorecard", "NEET Scorecard"},
		{"leavingCertificate", "School Leaving Certificate"},
		{"nationalityCertificate", "Nationality / Domicile Certificate"},
	}
	categoryDocuments = []documentLine{
		{"casteCertificate", "Caste Certificate"},
		{"casteValidity", "Caste Validity / Non-Creamy Layer Certificate"},
		{"incomeCertificate", "Income Certificate"},
	}
)

func documentsTable(docs models.Documents, kind Kind) Table {
	status := "Verified"
	lines := baseDocuments
	title := "Documents Verified"
	if kind == KindFullApplication {
		status = "Required"
		title = "Documents Required"
		lines = append(append([]documentLine(nil), baseDocuments...), categoryDocuments...)
	}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l.label, documentFile(docs, l.key), status})
	}
	return Table{
		Key:    TableDocuments,
		Title:  title,
		Header: []string{"Document", "File", "Status"},
		Rows:   rows,
	}
}

func documentFile(docs models.Documents, key string) string {
	ref, ok := docs[key]
	if !ok {
		return ""
	}
	if ref.FileName != "" {
		return ref.FileName
	}
	return ref.Placeholder
}

func declarationTable(v View) Table {
	date := notAvailable
	if !v.SubmittedAt.IsZero() {
		date = v.SubmittedAt.UTC().Format("02/01/2006")
	}
	return Table{
		Key:    TableDeclaration,
		Title:  "Declaration",
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Statement", "I hereby declare that the information furnished above is true and complete to the best of my knowledge."},
			{"Terms Accepted", yesNo(&v.Consents.AgreedToTerms)},
			{"Declaration Accepted", yesNo(&v.Consents.AgreedToDeclaration)},
			{"Place", text(v.Sections.Address.PermanentDistrict)},
			{"Date", date},
			{"Candidate", text(v.Sections.Personal.FullName)},
		},
	}
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func yesNo(p *bool) string {
	if p != nil && *p {
		return "Yes"
	}
	return "No"
}

func joinNonEmpty(parts ...*string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != nil && strings.TrimSpace(*p) != "" {
			out = append(out, strings.TrimSpace(*p))
		}
	}
	return strings.Join(out, ", ")
}

func parseNumber(p *string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*p), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// number echoes a numeric field, or N/A when absent or unparsable.
func number(p *string) string {
	if _, ok := parseNumber(p); !ok {
		return notAvailable
	}
	return strings.TrimSpace(*p)
}

func percentOf(marks *string) string {
	m, ok := parseNumber(marks)
	if !ok {
		return notAvailable
	}
	return fmt.Sprintf("%.2f", (m/100)*100)
}

// sumAll adds the fields only when every one of them is present.
func sumAll(fields ...*string) string {
	total := 0.0
	for _, f := range fields {
		v, ok := parseNumber(f)
		if !ok {
			return notAvailable
		}
		total += v
	}
	return strconv.FormatFloat(total, 'f', -1, 64)
}

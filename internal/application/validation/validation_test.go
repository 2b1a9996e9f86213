package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"admission/internal/application/models"
)

type ValidatorSuite struct {
	suite.Suite
	v *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupSuite() {
	v, err := New()
	s.Require().NoError(err)
	s.v = v
}

func completeSections() models.Sections {
	p := models.Ptr[string]
	d := models.NewDraft()
	d.UpdatePersonal(models.Personal{
		FullName: p("Asha Patil"), DateOfBirth: p("2006-04-12"), Gender: p("Female"),
		Email: p("asha@example.com"), MobileNumber: p("9876543210"), AadharNumber: p("123412341234"),
	})
	d.UpdateFamily(models.Family{FatherOccupation: p("Farmer"), AnnualIncome: p("250000")})
	d.UpdateCategory(models.Category{Category: p("OBC"), NonCreamyLayer: models.Ptr(true)})
	d.UpdateQualifyingExam(models.QualifyingExam{
		MHTCETAppeared: models.Ptr(true), MHTCETRollNumber: p("2025123456"), MHTCETPercentile: p("92.45"),
	})
	d.UpdateHSC(models.HSC{
		Board: p("Maharashtra"), Year: p("2025"), SeatNumber: p("M123456"),
		Physics: p("80"), Chemistry: p("75"), Maths: p("90"), English: p("70"),
	})
	d.UpdateSSC(models.SSC{Board: p("Maharashtra"), Year: p("2023"), SeatNumber: p("S98765"), Percentage: p("88.20")})
	d.UpdateAdditional(models.Additional{HasGap: models.Ptr(false)})
	d.UpdateAddress(models.Address{
		PermanentAddress: p("12 MG Road"), PermanentState: p("Maharashtra"),
		PermanentDistrict: p("Pune"), PermanentPincode: p("411001"),
		IsSameAsPermanent: models.Ptr(true),
	})
	d.UpdateBank(models.Bank{
		AccountHolderName: p("Asha Patil"), AccountNumber: p("123456789012"),
		IFSCCode: p("SBIN0001234"), BankName: p("SBI"),
	})
	d.UpdateDocuments(models.Documents{
		"photograph":   {FileName: "photo.jpg"},
		"signature":    {FileName: "sign.png"},
		"sscMarksheet": {FileName: "ssc.pdf"},
		"hscMarksheet": {Placeholder: "pending-upload"},
	})
	return d.Sections()
}

func (s *ValidatorSuite) TestCompleteApplicationValidates() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	validated, result, err := s.v.Validate(completeSections(), now)
	s.Require().NoError(err)
	s.True(result.Valid, "%+v", result.Sections)
	s.Require().NotNil(validated)
	s.Equal(now, validated.ValidatedAt())
	s.Equal("Asha Patil", *validated.Sections().Personal.FullName)
}

func (s *ValidatorSuite) TestEmptyApplicationFailsEverywhereButAdditional() {
	validated, result, err := s.v.Validate(models.Sections{}, time.Now())
	s.Require().NoError(err)
	s.Nil(validated)
	s.False(result.Valid)
	s.NotContains(result.Sections, models.SectionAdditional)
	s.Contains(result.Sections, models.SectionPersonal)
	s.Contains(result.Sections, models.SectionDocuments)
}

func (s *ValidatorSuite) TestFieldRules() {
	p := models.Ptr[string]

	s.Run("mobile number pattern", func() {
		errs, err := s.v.Section(models.SectionPersonal, models.Personal{
			FullName: p("Asha"), DateOfBirth: p("2006-04-12"), Gender: p("Female"),
			Email: p("asha@example.com"), MobileNumber: p("1234567890"),
		})
		s.Require().NoError(err)
		s.Require().Len(errs, 1)
		s.Equal("mobileNumber", errs[0].Field)
	})

	s.Run("missing required reports the property", func() {
		errs, err := s.v.Section(models.SectionBank, models.Bank{
			AccountHolderName: p("Asha"), AccountNumber: p("123456789012"), BankName: p("SBI"),
		})
		s.Require().NoError(err)
		s.Require().Len(errs, 1)
		s.Equal("ifscCode", errs[0].Field)
		s.Equal("required", errs[0].Rule)
	})

	s.Run("ifsc shape", func() {
		errs, err := s.v.Section(models.SectionBank, models.Bank{
			AccountHolderName: p("Asha"), AccountNumber: p("123456789012"), BankName: p("SBI"), IFSCCode: p("SBIN1234"),
		})
		s.Require().NoError(err)
		s.NotEmpty(errs)
	})

	s.Run("gap reason required when hasGap", func() {
		errs, err := s.v.Section(models.SectionAdditional, models.Additional{HasGap: models.Ptr(true)})
		s.Require().NoError(err)
		s.NotEmpty(errs)
	})

	s.Run("hsc needs maths or biology", func() {
		errs, err := s.v.Section(models.SectionHSC, models.HSC{
			Board: p("Maharashtra"), Year: p("2025"), SeatNumber: p("M123456"),
			Physics: p("80"), Chemistry: p("75"), English: p("70"),
		})
		s.Require().NoError(err)
		s.NotEmpty(errs)
	})

	s.Run("marks above 100 rejected", func() {
		errs, err := s.v.Section(models.SectionHSC, models.HSC{
			Board: p("Maharashtra"), Year: p("2025"), SeatNumber: p("M123456"),
			Physics: p("180"), Chemistry: p("75"), English: p("70"), Biology: p("60"),
		})
		s.Require().NoError(err)
		s.Require().Len(errs, 1)
		s.Equal("hscPhysics", errs[0].Field)
	})
}

func TestUnknownSection(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	_, err = v.Section(models.SectionName("payment"), struct{}{})
	assert.Error(t, err)
}

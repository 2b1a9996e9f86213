package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type StatusSuite struct {
	suite.Suite
}

func TestStatusSuite(t *testing.T) {
	suite.Run(t, new(StatusSuite))
}

// fillGroups populates every section of groups 1..n.
func fillGroups(n Group) Sections {
	d := NewDraft()
	for g := GroupPersonal; g <= n && g < GroupPreview; g++ {
		for _, name := range g.Sections() {
			fillSection(d, name)
		}
	}
	return d.Sections()
}

func fillSection(d *Draft, name SectionName) {
	switch name {
	case SectionPersonal:
		d.UpdatePersonal(Personal{FullName: Ptr("A")})
	case SectionFamily:
		d.UpdateFamily(Family{AnnualIncome: Ptr("250000")})
	case SectionCategory:
		d.UpdateCategory(Category{Category: Ptr("OPEN")})
	case SectionQualifyingExam:
		d.UpdateQualifyingExam(QualifyingExam{MHTCETAppeared: Ptr(true)})
	case SectionHSC:
		d.UpdateHSC(HSC{Physics: Ptr("80")})
	case SectionSSC:
		d.UpdateSSC(SSC{Percentage: Ptr("91")})
	case SectionAdditional:
		d.UpdateAdditional(Additional{HasGap: Ptr(false)})
	case SectionAddress:
		d.UpdateAddress(Address{PermanentPincode: Ptr("411001")})
	case SectionBank:
		d.UpdateBank(Bank{IFSCCode: Ptr("SBIN0001234")})
	case SectionDocuments:
		d.UpdateDocuments(Documents{"photograph": {Placeholder: "pending-upload"}})
	}
}

func (s *StatusSuite) TestPartialFirstGroup() {
	d := NewDraft()
	d.UpdatePersonal(Personal{FullName: Ptr("A")})
	sections := d.Sections()

	s.Equal(StatusInProgress, DeriveStatus(sections, false, GroupPersonal))
	s.Equal(StatusLocked, DeriveStatus(sections, false, GroupQualification))
}

func (s *StatusSuite) TestEmptyFirstGroupIsPendingNeverLocked() {
	s.Equal(StatusPending, DeriveStatus(Sections{}, false, GroupPersonal))
}

func (s *StatusSuite) TestCompletedShortCircuits() {
	for g := GroupPersonal; g <= GroupPreview; g++ {
		s.Equal(StatusCompleted, DeriveStatus(Sections{}, true, g))
	}
	s.Equal(100, Progress(Sections{}, true))
}

func (s *StatusSuite) TestLinearUnlockChain() {
	for filled := Group(0); filled < GroupPreview; filled++ {
		sections := fillGroups(filled)
		// the first non-completed group is pending; everything after it is locked
		first := filled + 1
		s.Equal(StatusPending, DeriveStatus(sections, false, first), "first open group %d", first)
		for j := first + 1; j <= GroupPreview; j++ {
			s.Equal(StatusLocked, DeriveStatus(sections, false, j), "group %d after %d", j, first)
		}
		for j := GroupPersonal; j <= filled; j++ {
			s.Equal(StatusCompleted, DeriveStatus(sections, false, j))
		}
	}
}

func (s *StatusSuite) TestInProgressLocksLaterGroups() {
	d := NewDraft()
	for _, name := range GroupPersonal.Sections() {
		fillSection(d, name)
	}
	fillSection(d, SectionHSC)
	fillSection(d, SectionBank) // ignored: an earlier group is open
	sections := d.Sections()

	s.Equal(StatusInProgress, DeriveStatus(sections, false, GroupQualification))
	for j := GroupAdditional; j <= GroupPreview; j++ {
		s.Equal(StatusLocked, DeriveStatus(sections, false, j))
	}
}

func (s *StatusSuite) TestSixOfSevenIsEightySix() {
	sections := fillGroups(GroupDocuments)
	s.Equal(StatusPending, DeriveStatus(sections, false, GroupPreview))
	s.Equal(86, Progress(sections, false))
}

func (s *StatusSuite) TestProgressSteps() {
	expected := []int{0, 14, 29, 43, 57, 71, 86}
	for g, want := range expected {
		s.Equal(want, Progress(fillGroups(Group(g)), false), "groups filled: %d", g)
	}
}

func (s *StatusSuite) TestDashboardRows() {
	rows := Dashboard(fillGroups(GroupPersonal), false)
	s.Require().Len(rows, TotalGroups)
	s.Equal("personal", rows[0].Key)
	s.Equal(StatusCompleted, rows[0].Status)
	s.Equal(StatusPending, rows[1].Status)
	s.Equal(StatusLocked, rows[6].Status)
	s.Empty(rows[6].Sections)
}

func TestDeriveStatusInvalidGroup(t *testing.T) {
	assert.Equal(t, StatusLocked, DeriveStatus(Sections{}, false, Group(0)))
	assert.Equal(t, StatusLocked, DeriveStatus(Sections{}, false, Group(8)))
}

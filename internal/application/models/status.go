package models

import "math"

// Status is the derived dashboard state of a group.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Group is a dashboard bundle of wizard steps, numbered 1..7.
type Group int

const (
	GroupPersonal Group = iota + 1
	GroupQualification
	GroupAdditional
	GroupAddress
	GroupBank
	GroupDocuments
	GroupPreview
)

const TotalGroups = 7

type groupDef struct {
	key      string
	title    string
	sections []SectionName
}

// Preview has no sections of its own: it completes only on submission.
var groups = [TotalGroups]groupDef{
	{"personal", "Personal Details", []SectionName{SectionPersonal, SectionFamily, SectionCategory}},
	{"qualification", "Qualification Details", []SectionName{SectionQualifyingExam, SectionHSC, SectionSSC}},
	{"additional", "Additional Information", []SectionName{SectionAdditional}},
	{"address", "Address Details", []SectionName{SectionAddress}},
	{"bank", "Bank Details", []SectionName{SectionBank}},
	{"documents", "Document Upload", []SectionName{SectionDocuments}},
	{"preview", "Preview & Submit", nil},
}

func (g Group) Valid() bool {
	return g >= GroupPersonal && g <= GroupPreview
}

func (g Group) Key() string {
	if !g.Valid() {
		return ""
	}
	return groups[g-1].key
}

func (g Group) Title() string {
	if !g.Valid() {
		return ""
	}
	return groups[g-1].title
}

func (g Group) Sections() []SectionName {
	if !g.Valid() {
		return nil
	}
	return groups[g-1].sections
}

// GroupStatus is one dashboard row.
type GroupStatus struct {
	Group    Group         `json:"group"`
	Key      string        `json:"key"`
	Title    string        `json:"title"`
	Status   Status        `json:"status"`
	Sections []SectionName `json:"sections,omitempty"`
}

// DeriveStatus computes the status of target. A group is locked unless every
// earlier group is completed; otherwise it is completed when all of its
// sections are filled, in-progress when some are, and pending when none are.
func DeriveStatus(sections Sections, completed bool, target Group) Status {
	if !target.Valid() {
		return StatusLocked
	}
	if completed {
		return StatusCompleted
	}
	prev := StatusCompleted
	for g := GroupPersonal; g <= target; g++ {
		if prev != StatusCompleted {
			return StatusLocked
		}
		prev = ownStatus(sections, g)
	}
	return prev
}

func ownStatus(sections Sections, g Group) Status {
	names := g.Sections()
	if len(names) == 0 {
		return StatusPending
	}
	filled := 0
	for _, name := range names {
		if sections.IsFilled(name) {
			filled++
		}
	}
	switch {
	case filled == len(names):
		return StatusCompleted
	case filled > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// Dashboard derives every group in order.
func Dashboard(sections Sections, completed bool) []GroupStatus {
	out := make([]GroupStatus, 0, TotalGroups)
	for g := GroupPersonal; g <= GroupPreview; g++ {
		out = append(out, GroupStatus{
			Group:    g,
			Key:      g.Key(),
			Title:    g.Title(),
			Status:   DeriveStatus(sections, completed, g),
			Sections: g.Sections(),
		})
	}
	return out
}

// Progress is round(100 * completedGroups / 7), or exactly 100 once submitted.
func Progress(sections Sections, completed bool) int {
	if completed {
		return 100
	}
	done := 0
	for _, row := range Dashboard(sections, false) {
		if row.Status == StatusCompleted {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / TotalGroups))
}

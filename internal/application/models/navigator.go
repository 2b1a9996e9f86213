package models

import (
	"fmt"

	dErrors "admission/pkg/domain-errors"
)

const (
	MinStep = 1
	MaxStep = 10
)

// Step describes one wizard page.
type Step struct {
	Number  int         `json:"number"`
	Section SectionName `json:"section"`
	Title   string      `json:"title"`
}

// Steps is the ten-page wizard, one section per page.
var Steps = [MaxStep]Step{
	{1, SectionPersonal, "Personal Details"},
	{2, SectionFamily, "Family Details"},
	{3, SectionCategory, "Category Details"},
	{4, SectionQualifyingExam, "Qualifying Exam Details"},
	{5, SectionHSC, "HSC Details"},
	{6, SectionSSC, "SSC Details"},
	{7, SectionAdditional, "Additional Information"},
	{8, SectionAddress, "Address Details"},
	{9, SectionBank, "Bank Details"},
	{10, SectionDocuments, "Document Upload"},
}

// Navigator holds the current wizard step. The zero value is not usable;
// construct with NewNavigator.
type Navigator struct {
	current int
}

func NewNavigator() Navigator {
	return Navigator{current: MinStep}
}

func (n Navigator) Current() int {
	return n.current
}

// SetStep jumps to step. Out-of-range values are rejected and leave the
// current step untouched.
func (n *Navigator) SetStep(step int) error {
	if step < MinStep || step > MaxStep {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("step must be between %d and %d", MinStep, MaxStep))
	}
	n.current = step
	return nil
}

// Next advances one step; no-op at the last step.
func (n *Navigator) Next() {
	if n.current < MaxStep {
		n.current++
	}
}

// Previous goes back one step; no-op at the first step.
func (n *Navigator) Previous() {
	if n.current > MinStep {
		n.current--
	}
}

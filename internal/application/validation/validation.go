// Package validation checks section records against declarative JSON
// schemas. Merges never validate; this pass is run on demand and produces a
// Validated view only when every section passes.
package validation

import (
	"embed"
	"fmt"
	"slices"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"admission/internal/application/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError is one schema violation.
type FieldError struct {
	Section models.SectionName `json:"section"`
	Field   string             `json:"field"`
	Rule    string             `json:"rule"`
	Message string             `json:"message"`
}

// Result lists violations for every section that failed.
type Result struct {
	Valid    bool                                `json:"valid"`
	Sections map[models.SectionName][]FieldError `json:"sections,omitempty"`
}

// Validated is a section set that has passed every schema.
type Validated struct {
	sections    models.Sections
	validatedAt time.Time
}

func (v *Validated) Sections() models.Sections { return v.sections.Clone() }
func (v *Validated) ValidatedAt() time.Time    { return v.validatedAt }

// Validator holds compiled schemas, one per section.
type Validator struct {
	schemas map[models.SectionName]*gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[models.SectionName]*gojsonschema.Schema, len(models.AllSections))}
	for _, name := range models.AllSections {
		src, err := schemaFS.ReadFile("schemas/" + string(name) + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Section validates one section record.
func (v *Validator) Section(name models.SectionName, record any) ([]FieldError, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return nil, fmt.Errorf("no schema for section %s", name)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]FieldError, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, FieldError{
			Section: name,
			Field:   fieldOf(e),
			Rule:    e.Type(),
			Message: e.Description(),
		})
	}
	slices.SortFunc(out, func(a, b FieldError) int {
		switch {
		case a.Field < b.Field:
			return -1
		case a.Field > b.Field:
			return 1
		}
		return 0
	})
	return out, nil
}

// Validate checks every section. Validated is nil unless Result.Valid.
func (v *Validator) Validate(sections models.Sections, now time.Time) (*Validated, Result, error) {
	result := Result{Valid: true}
	for _, name := range models.AllSections {
		errs, err := v.Section(name, recordOf(sections, name))
		if err != nil {
			return nil, Result{}, err
		}
		if len(errs) == 0 {
			continue
		}
		if result.Sections == nil {
			result.Sections = make(map[models.SectionName][]FieldError)
		}
		result.Sections[name] = errs
		result.Valid = false
	}
	if !result.Valid {
		return nil, result, nil
	}
	return &Validated{sections: sections.Clone(), validatedAt: now}, result, nil
}

// fieldOf reports the property a "required" error is about rather than its
// parent object.
func fieldOf(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			return prop
		}
	}
	field := e.Field()
	if field == "(root)" {
		return ""
	}
	return field
}

func recordOf(s models.Sections, name models.SectionName) any {
	switch name {
	case models.SectionPersonal:
		return s.Personal
	case models.SectionFamily:
		return s.Family
	case models.SectionCategory:
		return s.Category
	case models.SectionQualifyingExam:
		return s.QualifyingExam
	case models.SectionHSC:
		return s.HSC
	case models.SectionSSC:
		return s.SSC
	case models.SectionAdditional:
		return s.Additional
	case models.SectionAddress:
		return s.Address
	case models.SectionBank:
		return s.Bank
	case models.SectionDocuments:
		if s.Documents == nil {
			return models.Documents{}
		}
		return s.Documents
	}
	return nil
}

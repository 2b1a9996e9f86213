package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	dErrors "admission/pkg/domain-errors"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// ParseFormat defaults to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "format must be json, text or html")
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

//go:embed templates/report.html.tmpl
var templatesFS embed.FS

var htmlTemplate = template.Must(template.ParseFS(templatesFS, "templates/report.html.tmpl"))

// Render writes r in format f.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText:
		return RenderText(w, r)
	case FormatHTML:
		return htmlTemplate.Execute(w, r)
	default:
		return json.NewEncoder(w).Encode(r)
	}
}

// RenderText prints every table as an ASCII grid.
func RenderText(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "%s\nApplication ID: %s\nCandidate: %s\nSubmitted: %s\n\n",
		r.Title, r.ApplicationID, r.CandidateName, r.SubmittedAt); err != nil {
		return err
	}
	for _, t := range r.Tables {
		if _, err := fmt.Fprintf(w, "%s\n", t.Title); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetHeader(t.Header)
		table.AppendBulk(t.Rows)
		table.Render()
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	if r.OfficeUse != nil {
		if _, err := fmt.Fprintf(w, "FOR OFFICE USE ONLY\n%s\n", r.OfficeUse.Status); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetHeader(r.OfficeUse.Signatures)
		table.Append(make([]string, len(r.OfficeUse.Signatures)))
		table.Render()
	}
	return nil
}

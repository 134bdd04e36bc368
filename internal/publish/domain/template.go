package domain

import (
	"fmt"
	"strings"
	"text/template"
)

// Template is a parsed text template used for release titles, release notes
// and commit messages. Placeholders use Go template syntax, e.g.
// "{{ .Name }}-{{ .Version }}".
type Template struct {
	source string
	tmpl   *template.Template
}

// ParseTemplate parses text into a Template. Missing keys are errors so a
// misspelled placeholder fails loudly instead of rendering "<no value>".
func ParseTemplate(name, text string) (*Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s template: %w", name, err)
	}
	return &Template{source: text, tmpl: t}, nil
}

// MustParseTemplate is ParseTemplate that panics on error. For constants
// and tests only.
func MustParseTemplate(name, text string) *Template {
	t, err := ParseTemplate(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Render executes the template against data and trims surrounding whitespace.
func (t *Template) Render(data any) (string, error) {
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", t.tmpl.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// String returns the template source.
func (t *Template) String() string {
	return t.source
}

// ReleaseData is the data passed to release title and notes templates.
type ReleaseData struct {
	Name        string
	Version     string
	AppVersion  string
	Description string
}

// NewReleaseData builds template data from a chart descriptor.
func NewReleaseData(c Chart) ReleaseData {
	return ReleaseData{
		Name:        c.Name,
		Version:     c.Version,
		AppVersion:  c.AppVersion,
		Description: c.Description,
	}
}

// CommitData is the data passed to the commit message template.
type CommitData struct {
	Type string
}

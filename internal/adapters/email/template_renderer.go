package email

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"conferencecentral/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// A message named "x" is assembled from x_subject.txt, x.html and x.txt.
const (
	subjectSuffix = "_subject.txt"
	htmlSuffix    = ".html"
	textSuffix    = ".txt"
)

type templateRenderer struct {
	html *htmltemplate.Template
	text *template.Template
}

// NewTemplateRenderer parses the embedded templates once. The html set is
// escaped; subjects and plain-text bodies are not.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{
		html: htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*"+htmlSuffix)),
		text: template.Must(template.ParseFS(templateFS, "templates/*"+textSuffix)),
	}
}

func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	var sb, hb, tb strings.Builder
	if err := r.text.ExecuteTemplate(&sb, name+subjectSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := r.html.ExecuteTemplate(&hb, name+htmlSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&tb, name+textSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), hb.String(), tb.String(), nil
}

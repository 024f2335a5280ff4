package resumedoc

import (
	"fmt"
	"io"
	"strings"
)

// Style selects the plain text or markdown rendering
type Style int

const (
	StyleText Style = iota
	StyleMarkdown
)

// Render writes d in the given style. Empty sections are omitted.
func Render(w io.Writer, d *Document, style Style) error {
	r := &renderer{style: style}
	r.document(d)
	_, err := io.WriteString(w, r.String())
	return err
}

// RenderContent renders structured content, or the content verbatim when it is not
// structured, or the placeholder when it is empty.
func RenderContent(w io.Writer, content string, style Style) error {
	if doc, ok := Parse(content); ok {
		return Render(w, doc, style)
	}
	text := strings.TrimSpace(content)
	if text == "" {
		text = Placeholder
	}
	_, err := io.WriteString(w, text+"\n")
	return err
}

type renderer struct {
	strings.Builder
	style Style
}

func (r *renderer) document(d *Document) {
	if d == nil {
		return
	}
	if d.Name != "" {
		if r.style == StyleMarkdown {
			r.line("# " + d.Name)
		} else {
			r.line(strings.ToUpper(d.Name))
		}
	}
	if parts := d.Contact.Parts(); len(parts) > 0 {
		r.line(strings.Join(parts, " | "))
	}

	if d.Summary != "" {
		r.section("Summary")
		r.line(d.Summary)
	}

	if len(d.Skills) > 0 {
		r.section("Skills")
		for _, g := range d.Skills {
			r.bullet(r.strong(g.Category) + ": " + strings.Join(g.Items, ", "))
		}
	}

	if len(d.CoreCompetencies) > 0 {
		r.section("Core Competencies")
		r.line(strings.Join(d.CoreCompetencies, " · "))
	}

	if len(d.Experience) > 0 {
		r.section("Experience")
		for _, e := range d.Experience {
			r.entry(e.Heading(), e.Location, e.Period())
			for _, b := range e.Bullets {
				r.bullet(b)
			}
		}
	}

	if len(d.Projects) > 0 {
		r.section("Projects")
		for _, p := range d.Projects {
			r.entry(p.Name, "", strings.Join(p.Technologies, ", "))
			if p.Description != "" {
				r.line(p.Description)
			}
			for _, b := range p.Bullets {
				r.bullet(b)
			}
		}
	}
}

func (r *renderer) section(title string) {
	if r.Len() > 0 {
		r.WriteString("\n")
	}
	if r.style == StyleMarkdown {
		r.line("## " + title)
		return
	}
	r.line(strings.ToUpper(title))
	r.line(strings.Repeat("-", len(title)))
}

// entry writes a heading line such as "Engineer, Acme (Berlin) 2020 - Present"
func (r *renderer) entry(heading, location, detail string) {
	var b strings.Builder
	b.WriteString(r.strong(heading))
	if location != "" {
		fmt.Fprintf(&b, " (%s)", location)
	}
	if detail != "" {
		if b.Len() > 0 {
			b.WriteString("  ")
		}
		b.WriteString(detail)
	}
	if b.Len() > 0 {
		r.line(b.String())
	}
}

func (r *renderer) strong(s string) string {
	if s == "" || r.style != StyleMarkdown {
		return s
	}
	return "**" + s + "**"
}

func (r *renderer) bullet(s string) {
	if r.style == StyleMarkdown {
		r.line("- " + s)
		return
	}
	r.line("  • " + s)
}

func (r *renderer) line(s string) {
	r.WriteString(s)
	r.WriteString("\n")
}

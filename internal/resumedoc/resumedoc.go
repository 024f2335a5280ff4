// Package resumedoc reads the structured resume JSON the backend may store as resume content.
// Every field is optional and a malformed value falls back to its zero value.
package resumedoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Placeholder is shown when a resume has no content at all
const Placeholder = "Resume content not available."

type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Parts returns the non-empty contact fields in display order
func (c *Contact) Parts() []string {
	if c == nil {
		return nil
	}
	var parts []string
	for _, v := range []string{c.Email, c.Phone, c.Location, c.LinkedIn, c.GitHub, c.Website} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return parts
}

// SkillGroup is one category of skills
type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type Experience struct {
	Title     string   `json:"title,omitempty"`
	Company   string   `json:"company,omitempty"`
	Location  string   `json:"location,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Dates     string   `json:"dates,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
}

// Period is the display date range: the explicit dates string, else "start - end"
// with end defaulting to "Present".
func (e Experience) Period() string {
	if e.Dates != "" {
		return e.Dates
	}
	if e.StartDate == "" {
		return e.EndDate
	}
	end := e.EndDate
	if end == "" {
		end = "Present"
	}
	return e.StartDate + " - " + end
}

// Heading joins title and company
func (e Experience) Heading() string {
	switch {
	case e.Title != "" && e.Company != "":
		return e.Title + ", " + e.Company
	case e.Title != "":
		return e.Title
	}
	return e.Company
}

type Project struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Bullets      []string `json:"bullets,omitempty"`
}

// Document is a structured resume
type Document struct {
	Name             string       `json:"name,omitempty"`
	Contact          *Contact     `json:"contact,omitempty"`
	Summary          string       `json:"summary,omitempty"`
	Skills           []SkillGroup `json:"skills,omitempty"`
	CoreCompetencies []string     `json:"core_competencies,omitempty"`
	Experience       []Experience `json:"experience,omitempty"`
	Projects         []Project    `json:"projects,omitempty"`
}

// Parse reads structured resume content. It accepts a JSON string (optionally inside a
// ``` fence), raw bytes, a decoded map, or a *Document. ok is false when the content
// is empty or not a JSON object; callers then show it as plain text.
func Parse(content any) (*Document, bool) {
	switch v := content.(type) {
	case nil:
		return nil, false
	case *Document:
		return v, v != nil
	case map[string]any:
		return fromMap(v), true
	case []byte:
		return parseText(string(v))
	case string:
		return parseText(v)
	case fmt.Stringer:
		return parseText(v.String())
	}
	return nil, false
}

func parseText(text string) (*Document, bool) {
	text = stripFence(strings.TrimSpace(text))
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	return fromMap(raw), true
}

// stripFence removes a surrounding ``` or ```json fence
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

func fromMap(raw map[string]any) *Document {
	doc := &Document{
		Name:       str(raw["name"]),
		Contact:    contact(raw["contact"]),
		Experience: experiences(raw["experience"]),
		Projects:   projects(raw["projects"]),
	}

	profile, _ := raw["profile"].(map[string]any)
	doc.Summary = str(profile["summary"])
	if doc.Summary == "" {
		doc.Summary = str(raw["summary"])
	}
	doc.Skills = skills(profile["skills"])
	if len(doc.Skills) == 0 {
		doc.Skills = skills(raw["skills"])
	}
	doc.CoreCompetencies = strs(profile["core_competencies"])
	return doc
}

func contact(v any) *Contact {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	c := &Contact{
		Email:    str(m["email"]),
		Phone:    str(m["phone"]),
		Location: str(m["location"]),
		LinkedIn: str(m["linkedin"]),
		GitHub:   str(m["github"]),
		Website:  str(m["website"]),
	}
	if len(c.Parts()) == 0 {
		return nil
	}
	return c
}

// skills accepts {category: "a, b"} or {category: ["a", "b"]}; categories are sorted.
func skills(v any) []SkillGroup {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	categories := make([]string, 0, len(m))
	for k := range m {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	var groups []SkillGroup
	for _, category := range categories {
		items := strs(m[category])
		if len(items) == 0 {
			continue
		}
		groups = append(groups, SkillGroup{Category: category, Items: items})
	}
	return groups
}

func experiences(v any) []Experience {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Experience
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := Experience{
			Title:     str(m["title"]),
			Company:   str(m["company"]),
			Location:  str(m["location"]),
			StartDate: str(m["start_date"]),
			EndDate:   str(m["end_date"]),
			Dates:     str(m["dates"]),
			Bullets:   strs(m["bullets"]),
		}
		if len(e.Bullets) == 0 {
			e.Bullets = strs(m["achievements"])
		}
		out = append(out, e)
	}
	return out
}

func projects(v any) []Project {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Project
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Project{
			Name:         str(m["name"]),
			Description:  str(m["description"]),
			Technologies: strs(m["technologies"]),
			Bullets:      strs(m["bullets"]),
		})
	}
	return out
}

// str renders scalars as text and drops anything else
func str(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprint(val)
	case bool:
		return fmt.Sprint(val)
	}
	return ""
}

// strs accepts a list of scalars or a single comma separated string
func strs(v any) []string {
	switch val := v.(type) {
	case []any:
		var out []string
		for _, item := range val {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		var out []string
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"resumeforge/internal/resumedoc"
	"resumeforge/internal/types"
	"resumeforge/internal/view"
	"resumeforge/internal/workflow"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// ResumeListing is the dashboard: stats plus the resumes they summarize
type ResumeListing struct {
	Stats   view.Stats     `json:"stats"`
	Resumes []types.Resume `json:"resumes"`
}

// NewResumeListing computes the stats for resumes
func NewResumeListing(resumes []types.Resume) ResumeListing {
	return ResumeListing{Stats: view.ComputeStats(resumes), Resumes: resumes}
}

// ProfileListing is the profile list with the active one marked
type ProfileListing struct {
	Profiles []types.Profile `json:"profiles"`
	ActiveID string          `json:"activeId,omitempty"`
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, style := range []struct {
		format string
		style  resumedoc.Style
	}{
		{"text", resumedoc.StyleText},
		{"markdown", resumedoc.StyleMarkdown},
	} {
		registry.RegisterFormatter(style.format, "ResumeListing", &ResumeListingFormatter{style: style.style})
		registry.RegisterFormatter(style.format, "Resume", &ResumeFormatter{style: style.style})
		registry.RegisterFormatter(style.format, "WorkflowState", &WorkflowFormatter{style: style.style})
		registry.RegisterFormatter(style.format, "ProfileListing", &ProfileListingFormatter{style: style.style})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case ResumeListing:
		return "ResumeListing"
	case types.Resume:
		return "Resume"
	case workflow.State:
		return "WorkflowState"
	case ProfileListing:
		return "ProfileListing"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func scoreText(score *types.Score) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d%% (%s)", int(*score), view.ScoreBand(int(*score)).Name)
}

func heading(style resumedoc.Style, level int, title string) string {
	if style == resumedoc.StyleMarkdown {
		return strings.Repeat("#", level) + " " + title + "\n\n"
	}
	if level == 1 {
		return "=== " + strings.ToUpper(title) + " ===\n\n"
	}
	return title + ":\n"
}

// ResumeListingFormatter renders the stats header and a resume table
type ResumeListingFormatter struct {
	style resumedoc.Style
}

func (f *ResumeListingFormatter) Format(data any) (string, error) {
	listing, ok := data.(ResumeListing)
	if !ok {
		return "", fmt.Errorf("expected ResumeListing, got %T", data)
	}

	var output strings.Builder
	output.WriteString(heading(f.style, 1, "Resumes"))
	fmt.Fprintf(&output, "Total: %d   Optimized: %d   Average ATS: %d%%\n\n",
		listing.Stats.Total, listing.Stats.Optimized, listing.Stats.AverageATS)

	if len(listing.Resumes) == 0 {
		output.WriteString("No resumes yet. Run 'resumeforge optimize' to create one.\n")
		return output.String(), nil
	}

	if f.style == resumedoc.StyleMarkdown {
		output.WriteString("| ID | Role | Company | Date | Status | ATS |\n")
		output.WriteString("|---|---|---|---|---|---|\n")
		for _, r := range listing.Resumes {
			fmt.Fprintf(&output, "| %s | %s | %s | %s | %s | %s |\n",
				r.ID, r.Role, r.CompanyName, view.FormatDate(r.Date), view.StatusLabel(r.Status), scoreText(r.ATSScore))
		}
		return output.String(), nil
	}

	tw := tabwriter.NewWriter(&output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tCOMPANY\tDATE\tSTATUS\tATS")
	for _, r := range listing.Resumes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Role, r.CompanyName, view.FormatDate(r.Date), view.StatusLabel(r.Status), scoreText(r.ATSScore))
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (f *ResumeListingFormatter) SupportedType() string {
	return "ResumeListing"
}

// ResumeFormatter renders one resume with its metadata and content
type ResumeFormatter struct {
	style resumedoc.Style
}

func (f *ResumeFormatter) Format(data any) (string, error) {
	r, ok := data.(types.Resume)
	if !ok {
		return "", fmt.Errorf("expected Resume, got %T", data)
	}

	var output strings.Builder
	output.WriteString(heading(f.style, 1, r.Role))
	if f.style == resumedoc.StyleMarkdown {
		fmt.Fprintf(&output, "- **Company:** %s\n- **Created:** %s\n- **Status:** %s\n- **ATS:** %s\n\n",
			r.CompanyName, view.FormatDate(r.Date), view.StatusLabel(r.Status), scoreText(r.ATSScore))
		output.WriteString("---\n\n")
	} else {
		fmt.Fprintf(&output, "Company: %s\nCreated: %s\nStatus:  %s\nATS:     %s\n\n",
			r.CompanyName, view.FormatDate(r.Date), view.StatusLabel(r.Status), scoreText(r.ATSScore))
	}

	if err := resumedoc.RenderContent(&output, string(r.Content), f.style); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (f *ResumeFormatter) SupportedType() string {
	return "Resume"
}

// WorkflowFormatter renders the outcome of an optimize run
type WorkflowFormatter struct {
	style resumedoc.Style
}

func (f *WorkflowFormatter) Format(data any) (string, error) {
	s, ok := data.(workflow.State)
	if !ok {
		return "", fmt.Errorf("expected workflow State, got %T", data)
	}

	var output strings.Builder
	output.WriteString(heading(f.style, 1, fmt.Sprintf("%s at %s", s.Input.Role, s.Input.CompanyName)))
	fmt.Fprintf(&output, "Resume ID: %s\nStep: %s\n", s.ResumeID, s.Step)
	if s.ATSScore != nil {
		fmt.Fprintf(&output, "ATS score: %s\n", scoreText(s.ATSScore))
	}
	if s.FinalScore != nil {
		fmt.Fprintf(&output, "Optimized score: %s\n", scoreText(s.FinalScore))
	}
	if s.Done {
		fmt.Fprintf(&output, "Saved: %s resume\n", s.Selected)
	}
	output.WriteString("\n")

	if s.ScoreExplanation != "" {
		output.WriteString(heading(f.style, 2, "ATS Explanation"))
		output.WriteString(s.ScoreExplanation + "\n\n")
	}
	if s.OptimizeExplanation != "" {
		output.WriteString(heading(f.style, 2, "Optimization Notes"))
		output.WriteString(s.OptimizeExplanation + "\n\n")
	}

	text, title := s.Generated, "Generated Resume"
	if s.Optimized != "" && (s.Selected == workflow.VariantOptimized || s.Generated == "") {
		text, title = s.Optimized, "Optimized Resume"
	}
	output.WriteString(heading(f.style, 2, title))
	if err := resumedoc.RenderContent(&output, text, f.style); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (f *WorkflowFormatter) SupportedType() string {
	return "WorkflowState"
}

// ProfileListingFormatter renders profiles with their template counts
type ProfileListingFormatter struct {
	style resumedoc.Style
}

func (f *ProfileListingFormatter) Format(data any) (string, error) {
	listing, ok := data.(ProfileListing)
	if !ok {
		return "", fmt.Errorf("expected ProfileListing, got %T", data)
	}

	var output strings.Builder
	output.WriteString(heading(f.style, 1, "Profiles"))
	if len(listing.Profiles) == 0 {
		output.WriteString("No profiles yet. Run 'resumeforge profiles create' to add one.\n")
		return output.String(), nil
	}

	for _, p := range listing.Profiles {
		marker := " "
		if p.ID.String() == listing.ActiveID {
			marker = "*"
		}
		contact := strings.Join(nonEmpty(p.Email, p.Phone, p.GitHub), " | ")
		if f.style == resumedoc.StyleMarkdown {
			fmt.Fprintf(&output, "- %s **%s** (id %s) %s, %d template(s)\n", marker, p.Name, p.ID, contact, len(p.Resumes))
			continue
		}
		fmt.Fprintf(&output, "%s %s  %s  %s  templates: %d\n", marker, p.ID, p.Name, contact, len(p.Resumes))
	}
	return output.String(), nil
}

func (f *ProfileListingFormatter) SupportedType() string {
	return "ProfileListing"
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()

package formatters

import (
	"encoding/json"
	"testing"

	"resumeforge/internal/types"
	"resumeforge/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResumes() []types.Resume {
	return []types.Resume{
		{ID: "1", Role: "SRE", CompanyName: "Acme", Date: "2025-03-07", Status: types.StatusOptimized, ATSScore: types.ScorePtr(90)},
		{ID: "2", Role: "Dev", CompanyName: "Beta", Date: "2025-03-08", Status: types.StatusGenerated, ATSScore: types.ScorePtr(70)},
	}
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewFormatterRegistry().Format(NewResumeListing(nil), "yaml")
	assert.Error(t, err)
}

func TestResumeListingFormats(t *testing.T) {
	registry := NewFormatterRegistry()
	listing := NewResumeListing(sampleResumes())

	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"Total: 2   Optimized: 1   Average ATS: 80%", "ID  ROLE", "March 7, 2025", "90% (excellent)", "70% (fair)"}},
		{"markdown", []string{"# Resumes", "| 1 | SRE | Acme | March 7, 2025 | Optimized | 90% (excellent) |"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := registry.Format(listing, tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}

	out, err := registry.Format(listing, "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(80), decoded["stats"].(map[string]any)["averageAts"])
}

func TestEmptyResumeListing(t *testing.T) {
	out, err := NewFormatterRegistry().Format(NewResumeListing(nil), "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Average ATS: 0%")
	assert.Contains(t, out, "No resumes yet")
}

func TestResumeFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	plain := types.Resume{Role: "SRE", CompanyName: "Acme", Content: "Plain text resume"}
	out, err := registry.Format(plain, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "=== SRE ===")
	assert.Contains(t, out, "ATS:     -")
	assert.Contains(t, out, "Plain text resume")

	empty := types.Resume{Role: "SRE"}
	out, err = registry.Format(empty, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Resume content not available.")

	structured := types.Resume{Role: "SRE", Content: `{"name":"Ada","profile":{"summary":"Hi"}}`}
	out, err = registry.Format(structured, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Ada\n")
	assert.Contains(t, out, "## Summary\nHi\n")
}

func TestWorkflowFormatter(t *testing.T) {
	state := workflow.State{
		Step:                workflow.StepFinal,
		Input:               workflow.Input{CompanyName: "Acme", Role: "SRE"},
		ResumeID:            "17",
		Generated:           "GEN",
		Optimized:           "OPT",
		ATSScore:            types.ScorePtr(72),
		FinalScore:          types.ScorePtr(91),
		ScoreExplanation:    "missing keywords",
		OptimizeExplanation: "added keywords",
		Selected:            workflow.VariantOptimized,
		Done:                true,
	}

	out, err := NewFormatterRegistry().Format(state, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "=== SRE AT ACME ===")
	assert.Contains(t, out, "ATS score: 72% (fair)")
	assert.Contains(t, out, "Optimized score: 91% (excellent)")
	assert.Contains(t, out, "Saved: optimized resume")
	assert.Contains(t, out, "OPT\n")
	assert.NotContains(t, out, "GEN\n")
}

func TestProfileListingFormatter(t *testing.T) {
	listing := ProfileListing{
		Profiles: []types.Profile{
			{ID: "1", Name: "Main", Email: "a@b.c", Resumes: []string{"cv"}},
			{ID: "2", Name: "Alt"},
		},
		ActiveID: "2",
	}

	out, err := NewFormatterRegistry().Format(listing, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "  1  Main  a@b.c  templates: 1")
	assert.Contains(t, out, "* 2  Alt")
}

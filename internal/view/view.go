// Package view holds the presentation helpers shared by the web pages and the CLI output.
package view

import (
	"math"
	"regexp"
	"strings"
	"time"

	"resumeforge/internal/types"
)

// Stats summarizes a resume list for the dashboard
type Stats struct {
	Total      int `json:"total"`
	Optimized  int `json:"optimized"`
	AverageATS int `json:"averageAts"`
}

// ComputeStats counts resumes and averages their ATS scores, treating a missing score as 0.
func ComputeStats(resumes []types.Resume) Stats {
	stats := Stats{Total: len(resumes)}
	if len(resumes) == 0 {
		return stats
	}
	sum := 0
	for _, r := range resumes {
		if r.Status == types.StatusOptimized {
			stats.Optimized++
		}
		if r.ATSScore != nil {
			sum += int(*r.ATSScore)
		}
	}
	stats.AverageATS = int(math.Round(float64(sum) / float64(len(resumes))))
	return stats
}

// Band classifies an ATS score
type Band struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	BandExcellent = Band{Name: "excellent", Color: "green"}
	BandGood      = Band{Name: "good", Color: "yellow"}
	BandFair      = Band{Name: "fair", Color: "orange"}
	BandPoor      = Band{Name: "poor", Color: "red"}
)

func ScoreBand(score int) Band {
	switch {
	case score >= 90:
		return BandExcellent
	case score >= 80:
		return BandGood
	case score >= 70:
		return BandFair
	default:
		return BandPoor
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders an ISO-8601 date as "January 2, 2006"; anything else is returned as is.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return s
}

var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// DownloadName builds "{role}_{company}_Resume{ext}" with path-unsafe characters replaced.
func DownloadName(r types.Resume, ext string) string {
	name := r.Role + "_" + r.CompanyName + "_Resume"
	return unsafeFileChars.ReplaceAllString(name, "-") + ext
}

// TextDownloadName is the file name of the plain-text download
func TextDownloadName(r types.Resume) string {
	return DownloadName(r, ".txt")
}

// PDFDownloadName is the file name of the PDF export
func PDFDownloadName(r types.Resume) string {
	return DownloadName(r, ".pdf")
}

// StatusLabel is the display name of a resume status
func StatusLabel(s types.Status) string {
	if s == types.StatusOptimized {
		return "Optimized"
	}
	return "Generated"
}

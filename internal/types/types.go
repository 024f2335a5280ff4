package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a backend identifier. The backend emits numeric ids; profiles may use strings.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Score is an ATS score between 0 and 100.
type Score int

// UnmarshalJSON accepts integers, floats (rounded) and numeric strings.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(str))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid score %q", string(data))
	}
	*s = Score(math.Round(f))
	return nil
}

// ScorePtr returns a pointer to a Score, used for optional payload fields.
func ScorePtr(v int) *Score {
	s := Score(v)
	return &s
}

// Content is resume text. Structured resumes may arrive as a JSON object instead of a string;
// they are kept as raw JSON text.
type Content string

// UnmarshalJSON keeps strings as-is and stores any other JSON value verbatim.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content(s)
	default:
		*c = Content(data)
	}
	return nil
}

// Status is the finalized variant of a resume.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusOptimized Status = "optimized"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusGenerated || s == StatusOptimized
}

// Resume is a generated resume record owned by the backend
type Resume struct {
	ID              ID      `json:"id"`
	CompanyName     string  `json:"companyName"`
	Role            string  `json:"role"`
	Date            string  `json:"date"`
	Status          Status  `json:"status"`
	ATSScore        *Score  `json:"atsScore,omitempty"`
	Content         Content `json:"content,omitempty"`
	JobDescription  string  `json:"jobDescription,omitempty"`
	OriginalResume  string  `json:"originalResume,omitempty"`
	OptimizedResume string  `json:"optimizedResume,omitempty"`
}

// Profile is a saved set of contact details plus reusable resume templates
type Profile struct {
	ID      ID       `json:"id,omitempty"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email"`
	GitHub  string   `json:"github"`
	Resumes []string `json:"resumes"`
}

// User is the account returned on login or signup
type User struct {
	ID    ID     `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// DisplayName prefers the user's name and falls back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /signup
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse carries the user and bearer token
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ResumeList is the envelope of GET /results
type ResumeList struct {
	Results []Resume `json:"results"`
}

// GenerateRequest is the body of POST /generate_resume
type GenerateRequest struct {
	JobDescription string `json:"job_description"`
	CurrentResume  string `json:"current_resume"`
	CompanyName    string `json:"companyName"`
	Role           string `json:"role"`
}

// GenerateResult is the response of POST /generate_resume
type GenerateResult struct {
	Result string `json:"result"`
	ID     ID     `json:"id"`
}

// ScoreRequest is the body of POST /evaluate_ats
type ScoreRequest struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
}

// ScoreResult is the response of POST /evaluate_ats
type ScoreResult struct {
	ATSScore    *Score `json:"atsScore"`
	Explanation string `json:"explanation"`
}

// OptimizeRequest is the body of POST /optimize_resume
type OptimizeRequest struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
}

// OptimizeResult is the response of POST /optimize_resume
type OptimizeResult struct {
	OptimizedResume string `json:"optimized_resume"`
	FinalScore      *Score `json:"final_score"`
	Explanation     string `json:"explanation"`
}

// SaveRequest is the body of POST /saveselectedresume.
// Scores are always sent, as null when unknown; only the chosen variant's text is included.
type SaveRequest struct {
	ID              ID     `json:"id"`
	Status          Status `json:"status"`
	ATSScore        *Score `json:"atsscore"`
	OptimizedScore  *Score `json:"optimizedscore"`
	OptimizedResume string `json:"optimizedResume,omitempty"`
	GeneratedResume string `json:"generatedResume,omitempty"`
}

// SaveAck is the backend acknowledgement of a save
type SaveAck struct {
	Message string `json:"message"`
	ID      ID     `json:"id"`
	Status  Status `json:"status"`
	Score   *Score `json:"score"`
}

// PDFDocument is an exported resume
type PDFDocument struct {
	Filename string
	Data     []byte
}

// Package types contains shared data types that have no CGO dependencies.
// This allows packages like the API client to use them without pulling in sqlite-vec.
package types

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// EntityKind identifies which side of the market an indexed entity belongs to
type EntityKind string

const (
	KindJob       EntityKind = "job"
	KindCandidate EntityKind = "candidate"
)

// Valid returns true if the EntityKind is a known valid kind
func (k EntityKind) Valid() bool {
	switch k {
	case KindJob, KindCandidate:
		return true
	}
	return false
}

// Validate returns an error if the EntityKind is invalid
func (k EntityKind) Validate() error {
	if !k.Valid() {
		return fmt.Errorf("%w: invalid entity kind %q: must be job or candidate", ErrValidation, k)
	}
	return nil
}

// Opposite returns the kind a profile of this kind is matched against
func (k EntityKind) Opposite() EntityKind {
	if k == KindCandidate {
		return KindJob
	}
	return KindCandidate
}

// Vector is a fixed-length embedding. Treat it as immutable once computed.
type Vector []float32

// Attributes are the structured, filterable fields shared by jobs and candidates
type Attributes struct {
	Location       string   `json:"location,omitempty" bson:"location,omitempty"`
	Remote         bool     `json:"remote" bson:"remote"`
	SalaryMin      int      `json:"salary_min,omitempty" bson:"salary_min,omitempty"`
	SalaryMax      int      `json:"salary_max,omitempty" bson:"salary_max,omitempty"`
	Skills         []string `json:"skills,omitempty" bson:"skills,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty" bson:"employment_type,omitempty"`
}

// Normalized returns a copy with trimmed strings, lower-cased sorted unique skills
// and an ordered salary range.
func (a Attributes) Normalized() Attributes {
	out := Attributes{
		Location:       strings.TrimSpace(a.Location),
		Remote:         a.Remote,
		SalaryMin:      a.SalaryMin,
		SalaryMax:      a.SalaryMax,
		Skills:         NormalizeSkills(a.Skills),
		EmploymentType: strings.ToLower(strings.TrimSpace(a.EmploymentType)),
	}
	if out.SalaryMin < 0 {
		out.SalaryMin = 0
	}
	if out.SalaryMax < 0 {
		out.SalaryMax = 0
	}
	if out.SalaryMax > 0 && out.SalaryMin > out.SalaryMax {
		out.SalaryMin, out.SalaryMax = out.SalaryMax, out.SalaryMin
	}
	return out
}

// Equal reports whether both attribute sets are identical
func (a Attributes) Equal(b Attributes) bool {
	return a.Location == b.Location && a.Remote == b.Remote &&
		a.SalaryMin == b.SalaryMin && a.SalaryMax == b.SalaryMax &&
		a.EmploymentType == b.EmploymentType && slices.Equal(a.Skills, b.Skills)
}

// NormalizeSkills lower-cases, trims, dedupes and sorts a skill list.
// A nil input stays nil so absent and empty can be told apart.
func NormalizeSkills(skills []string) []string {
	if skills == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// JobPosting is an open position that candidates are matched against
type JobPosting struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company,omitempty"`
	Description string     `json:"description"`
	Attributes  Attributes `json:"attributes"`
}

// EmbeddingText is the text whose embedding represents the posting
func (j JobPosting) EmbeddingText() string {
	parts := []string{j.Title, j.Company, j.Description}
	if len(j.Attributes.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(j.Attributes.Skills, ", "))
	}
	if j.Attributes.Location != "" {
		parts = append(parts, "Location: "+j.Attributes.Location)
	}
	return joinNonEmpty(parts)
}

// CandidateProfile is a job seeker's résumé and stated preferences
type CandidateProfile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Text       string     `json:"text"`
	Attributes Attributes `json:"attributes"`
}

// EmbeddingText is the text whose embedding represents the candidate
func (c CandidateProfile) EmbeddingText() string {
	parts := []string{c.Text}
	if len(c.Attributes.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(c.Attributes.Skills, ", "))
	}
	return joinNonEmpty(parts)
}

// Profile is the query side of a recommendation: either a candidate looking for
// jobs or a job looking for candidates.
type Profile struct {
	Kind       EntityKind `json:"kind"`
	ID         string     `json:"id,omitempty"`
	Text       string     `json:"text"`
	Attributes Attributes `json:"attributes"`
}

// CandidateQuery builds a Profile from a candidate
func CandidateQuery(c CandidateProfile) Profile {
	return Profile{Kind: KindCandidate, ID: c.ID, Text: c.EmbeddingText(), Attributes: c.Attributes}
}

// JobQuery builds a Profile from a job posting
func JobQuery(j JobPosting) Profile {
	return Profile{Kind: KindJob, ID: j.ID, Text: j.EmbeddingText(), Attributes: j.Attributes}
}

// MatchResult is one ranked pairing. Computed per query, never persisted.
type MatchResult struct {
	ID          string   `json:"id"`
	JobID       string   `json:"job_id"`
	CandidateID string   `json:"candidate_id"`
	Score       float64  `json:"score"`
	Matched     []string `json:"matched"`
	Failed      []string `json:"failed"`
	Explanation string   `json:"explanation"`
}

// MatchID is the deterministic id of a job/candidate pairing
func MatchID(jobID, candidateID string) string {
	return jobID + ":" + candidateID
}

// JobAnalysis is the structured summary extracted from free text
type JobAnalysis struct {
	Title       string     `json:"title,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Seniority   string     `json:"seniority,omitempty"`
	Attributes  Attributes `json:"attributes"`
	ContentHash string     `json:"content_hash"`
}

// Role is the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn entry in a conversation
type Message struct {
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// SessionState is the lifecycle state of a conversation
type SessionState string

const (
	StateStarted    SessionState = "started"
	StateEliciting  SessionState = "eliciting"
	StateConfirming SessionState = "confirming"
	StateClosed     SessionState = "closed"
)

// Session is a multi-turn conversation keyed by (UserID, ID)
type Session struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Messages    []Message    `json:"messages"`
	Preferences Preferences  `json:"preferences"`
	State       SessionState `json:"state"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so a failed turn can never leave a half-updated session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Preferences = s.Preferences.Clone()
	return &c
}

// Summary returns the list view of the session
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		UserID:       s.UserID,
		State:        s.State,
		MessageCount: len(s.Messages),
		Preferences:  s.Preferences.Clone(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// SessionSummary is the list view of a session
type SessionSummary struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	State        SessionState `json:"state"`
	MessageCount int          `json:"message_count"`
	Preferences  Preferences  `json:"preferences"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SortSummaries orders summaries most recently updated first, then by id
func SortSummaries(s []SessionSummary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].ID < s[j].ID
	})
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// IndexEntry is one indexed vector together with the snapshot it was computed from
type IndexEntry struct {
	Kind       EntityKind `json:"kind" bson:"kind"`
	ID         string     `json:"id" bson:"_id"`
	Vector     Vector     `json:"vector" bson:"vector"`
	Attributes Attributes `json:"attributes" bson:"attributes"`
	// TextHash is the embedding cache key of the text the vector was computed from
	TextHash  string    `json:"text_hash" bson:"text_hash"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy
func (e IndexEntry) Clone() IndexEntry {
	e.Vector = e.Vector.Clone()
	e.Attributes.Skills = append([]string(nil), e.Attributes.Skills...)
	return e
}

package domain

import "math"

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// GapSentinel stands in for an infinite rank gap (single-candidate result)
// wherever the value has to be serialized.
const GapSentinel = 1e9

// Candidate is one nearest-neighbor hit for a single query. Distances are
// comparable only within the result set they came from.
type Candidate struct {
	Title    string
	Distance float64
	Document string
}

// RetrievalResult is the sorted candidate list plus the confidence verdict.
// Candidates are ordered by non-decreasing distance; the first element, when
// present, is the one and only recommended title.
type RetrievalResult struct {
	Candidates  []Candidate
	KSelected   int
	Confidence  Confidence
	TopDistance float64
	Gap         float64
}

type RankedTitle struct {
	Title    string  `json:"title"`
	Distance float64 `json:"distance"`
}

type EvidenceItem struct {
	Title    string  `json:"title"`
	Distance float64 `json:"distance"`
	Snippet  string  `json:"snippet"`
}

// Recommendation is the complete response object returned to callers. It is
// well-formed even for rejected or blocked queries (Title nil, explanatory
// AnswerText).
type Recommendation struct {
	Title       *string        `json:"title"`
	AnswerText  string         `json:"answer_text"`
	Ranked      []RankedTitle  `json:"ranked_candidates"`
	Evidence    []EvidenceItem `json:"evidence"`
	Confidence  Confidence     `json:"confidence"`
	TopDistance float64        `json:"d1"`
	Gap         float64        `json:"gap"`
}

// SerializableGap replaces an infinite gap with GapSentinel.
func SerializableGap(gap float64) float64 {
	if math.IsInf(gap, 1) || gap > GapSentinel {
		return GapSentinel
	}
	return gap
}

package facematch

// DefaultThreshold is the minimum similarity accepted as a match.
const DefaultThreshold = 0.6

// Candidate is one enrolled descriptor and the user that owns it.
type Candidate struct {
	UserID    string
	Embedding Embedding
}

// Result is the outcome of a compare-and-decide pass. When Matched is false
// UserID is empty and Score carries the best sub-threshold similarity.
// Distance is the euclidean distance between the unit-length query and the
// best candidate; it is nil when no candidate was comparable.
type Result struct {
	UserID   string   `json:"user_id,omitempty"`
	Score    float64  `json:"score"`
	Distance *float64 `json:"distance,omitempty"`
	Matched  bool     `json:"matched"`
}

// Index decides which candidate, if any, a query descriptor belongs to.
// Implementations must return the first maximal candidate on ties so that
// swapping the linear scan for a vector index keeps results stable.
type Index interface {
	Match(query Embedding, candidates []Candidate) Result
}

// Matcher is the linear-scan Index.
type Matcher struct {
	threshold float64
}

var _ Index = (*Matcher)(nil)

// NewMatcher creates a matcher. A non-positive threshold selects DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scans every candidate and keeps the best score. The best is only
// replaced on a strictly greater score, so the first maximal candidate wins.
// Candidates whose length differs from the query are skipped.
func (m *Matcher) Match(query Embedding, candidates []Candidate) Result {
	best := -1
	var bestScore float64

	for i, c := range candidates {
		if len(c.Embedding) != len(query) {
			continue
		}
		score := CosineSimilarity(query, c.Embedding)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return Result{}
	}

	distance := EuclideanDistance(Normalize(query), Normalize(candidates[best].Embedding))
	result := Result{Score: bestScore, Distance: &distance}
	if bestScore >= m.threshold {
		result.UserID = candidates[best].UserID
		result.Matched = true
	}
	return result
}

// Compare checks a query against a single reference descriptor.
func (m *Matcher) Compare(userID string, query, reference Embedding) Result {
	return m.Match(query, []Candidate{{UserID: userID, Embedding: reference}})
}

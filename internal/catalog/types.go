// Package catalog defines core types shared across the resolution pipeline.
package catalog

// Candidate is a lightweight search-result reference produced by the search
// resolver, prior to full detail resolution.
type Candidate struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Sentinel values used when a detail-page field cannot be extracted.
const (
	SentinelYear    = "unknown"
	SentinelRating  = "no rating"
	SentinelGenre   = "unknown genre"
	SentinelActor   = "unknown actor"
	SentinelPoster  = "no poster"
	SentinelSummary = "no summary"
)

// Record is the fully resolved, structured movie attribute set returned to
// callers. It is request-scoped: created, validated, returned, never stored.
type Record struct {
	Title   string   `json:"title"`
	Year    string   `json:"year"`
	Rating  string   `json:"rating"`
	Genres  []string `json:"genres"`
	Cast    []string `json:"cast"`
	Poster  string   `json:"poster"`
	Summary string   `json:"summary"`
}

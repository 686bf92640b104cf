package entity

const (
	MediaTypeMovie   = "movie"
	MediaTypeSeries  = "series"
	MediaTypeEpisode = "episode"
)

// MediaMetadata is a lookup result. It lives for one request only.
type MediaMetadata struct {
	Title        string
	Year         string
	Type         string
	Plot         string
	Season       string
	Episode      string
	EpisodeTitle string
	Raw          map[string]any // Untouched OMDb document, echoed back to the UI
}

func (m *MediaMetadata) IsSeries() bool {
	return m.Type == MediaTypeSeries
}

// Suggestion is one entry of a free-text search.
type Suggestion struct {
	Title string `json:"title"`
	Year  string `json:"year"`
	Type  string `json:"type"`
}

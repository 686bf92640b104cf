package entity

// QueueEntry is a directory directly under the queue root.
type QueueEntry struct {
	Name string
	Path string
}

// Destination is one of the two library roots a processed folder goes to.
type Destination string

const (
	DestinationMovie Destination = "movie"
	DestinationShow  Destination = "show"
)

func (d Destination) Valid() bool {
	return d == DestinationMovie || d == DestinationShow
}

// RelocationPlan is the computed target of a rename request.
type RelocationPlan struct {
	FinalPath    string // Folder whose files get renamed
	FilenameBase string // Name every file gets before its quality tag and extension
	IsSeries     bool
}

// FolderHint is read from an optional markdown file inside a queue folder.
type FolderHint struct {
	Title       string `yaml:"title" json:"title,omitempty"`
	Year        string `yaml:"year" json:"year,omitempty"`
	Type        string `yaml:"type" json:"type,omitempty"`
	Season      string `yaml:"season" json:"season,omitempty"`
	Episode     string `yaml:"episode" json:"episode,omitempty"`
	ContentHTML string `yaml:"-" json:"content_html,omitempty"`
}

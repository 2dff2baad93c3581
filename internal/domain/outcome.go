package domain

// URLState is the processing state of one URL within a message.
type URLState string

const (
	URLStatePending    URLState = "pending"
	URLStateSkipped    URLState = "skipped"
	URLStateDownloaded URLState = "downloaded"
	URLStateRecorded   URLState = "recorded"
	URLStateFailed     URLState = "failed"
)

// IsTerminal returns true if no further transition is possible.
func (s URLState) IsTerminal() bool {
	return s == URLStateSkipped || s == URLStateRecorded || s == URLStateFailed
}

// Stage names the pipeline step an error happened in.
type Stage string

const (
	StageDedup    Stage = "dedup"
	StageClassify Stage = "classify"
	StageFetch    Stage = "fetch"
	StageUpload   Stage = "upload"
	StageRecord   Stage = "record"
)

// URLOutcome is the result of processing a single URL.
type URLOutcome struct {
	URL       string   `json:"url"`
	Platform  Platform `json:"platform,omitempty"`
	GroupName string   `json:"group_name"`
	State     URLState `json:"state"`
	Stage     Stage    `json:"stage,omitempty"`
	Files     []string `json:"files,omitempty"`
	Uploaded  int      `json:"uploaded,omitempty"`
	Error     string   `json:"error,omitempty"`
}

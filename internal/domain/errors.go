package domain

import "errors"

// Domain errors.
var (
	// ErrConfiguration is returned when required settings are missing at the point of use.
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalTool is returned when the fetch tool exits non-zero or fails to start.
	ErrExternalTool = errors.New("external tool failed")

	// ErrFetchTimeout is returned when the fetch tool is killed after its deadline.
	ErrFetchTimeout = errors.New("external tool timed out")

	// ErrNoFilesProduced is returned when a fetch succeeds but reports no files.
	ErrNoFilesProduced = errors.New("no files produced")

	// ErrRemoteCall is returned when the remote store rejects a folder or upload call.
	ErrRemoteCall = errors.New("remote store call failed")

	// ErrRemoteDisabled is returned when an upload is attempted with remote archiving off.
	ErrRemoteDisabled = errors.New("remote archiving disabled")

	// ErrDuplicateArchival is returned when a URL is already recorded.
	ErrDuplicateArchival = errors.New("url already archived")

	// ErrUnsupportedPlatform is returned for URLs that classify as unknown.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrInvalidLink is returned when an archive record misses required fields.
	ErrInvalidLink = errors.New("invalid archived link")

	// ErrGroupNotFound is returned when a chat group has no known subject.
	ErrGroupNotFound = errors.New("group not found")
)

// ArchiveError wraps an error with the URL and pipeline stage it came from.
type ArchiveError struct {
	URL   string
	Stage Stage
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.URL != "" {
		return string(e.Stage) + " [" + e.URL + "]: " + e.Err.Error()
	}
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(url string, stage Stage, err error) *ArchiveError {
	return &ArchiveError{
		URL:   url,
		Stage: stage,
		Err:   err,
	}
}

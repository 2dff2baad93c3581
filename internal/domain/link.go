package domain

import (
	"fmt"
	"time"
)

// ArchivedLink is one archival fact. URL is either the bare URL extracted
// from a message or a per-file variant built by PerFileURL.
type ArchivedLink struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	Platform     Platform   `json:"platform"`
	GroupName    string     `json:"group_name"`
	FilePath     string     `json:"file_path"`
	FileSize     *int64     `json:"file_size,omitempty"`
	RemoteID     string     `json:"remote_id,omitempty"`
	DownloadedAt time.Time  `json:"downloaded_at"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
}

// Validate checks that the required columns are present.
func (l *ArchivedLink) Validate() error {
	switch {
	case l.URL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidLink)
	case l.Platform == "":
		return fmt.Errorf("%w: platform is required", ErrInvalidLink)
	case l.GroupName == "":
		return fmt.Errorf("%w: group name is required", ErrInvalidLink)
	case l.FilePath == "":
		return fmt.Errorf("%w: file path is required", ErrInvalidLink)
	}
	return nil
}

// HasRemote reports whether the artifact was also stored remotely.
func (l *ArchivedLink) HasRemote() bool {
	return l.RemoteID != ""
}

// PerFileURL builds the audit key for one artifact of a multi-file download.
func PerFileURL(url, filePath string) string {
	return url + "#" + filePath
}

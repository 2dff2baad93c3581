package remote

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveFolderMime = "application/vnd.google-apps.folder"

// DriveStore implements FolderStore on Google Drive v3.
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore authenticates with a stored OAuth token. The token source
// refreshes the access token as needed.
func NewDriveStore(ctx context.Context, credentialsPath, tokenPath string) (*DriveStore, error) {
	oauthCfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}

	// The client outlives the triggering request, so it must not inherit
	// its context.
	client := oauthCfg.Client(context.Background(), tok)
	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveStore{svc: svc}, nil
}

// NewDriveStoreWithService wraps an existing service.
func NewDriveStoreWithService(svc *drive.Service) *DriveStore {
	return &DriveStore{svc: svc}
}

// FindFolder looks up a non-trashed child folder by exact name.
func (s *DriveStore) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	res, err := s.svc.Files.List().
		Q(folderQuery(parentID, name)).
		Fields("files(id, name)").
		Spaces("drive").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(res.Files) == 0 {
		return "", nil
	}
	return res.Files[0].Id, nil
}

// CreateFolder creates a child folder.
func (s *DriveStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	f, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: driveFolderMime,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

// CreateFile uploads content as a new file. Drive streams the body, so
// size is unused.
func (s *DriveStore) CreateFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (string, error) {
	f, err := s.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(content).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

func folderQuery(parentID, name string) string {
	return fmt.Sprintf("name='%s' and '%s' in parents and mimeType='%s' and trashed=false",
		escapeQuery(name), escapeQuery(parentID), driveFolderMime)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

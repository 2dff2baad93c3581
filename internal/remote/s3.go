package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/domain"
)

const folderMarkerType = "application/x-directory"

// S3Store implements FolderStore on an S3 compatible bucket. Folder ids are
// key prefixes and a folder exists when its "<prefix>/" marker object does.
type S3Store struct {
	client *minio.Client
	bucket string
	region string

	mu          sync.Mutex
	bucketReady bool
}

// NewS3Store creates a MinIO client from the remote config.
func NewS3Store(cfg config.RemoteConfig) (*S3Store, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("%w: S3_ENDPOINT and S3_BUCKET are required", domain.ErrConfiguration)
	}
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init minio: %v", domain.ErrConfiguration, err)
	}
	return &S3Store{client: client, bucket: cfg.S3Bucket, region: cfg.S3Region}, nil
}

// FindFolder stats the folder marker.
func (s *S3Store) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := objectKey(parentID, name)
	_, err := s.client.StatObject(ctx, s.bucket, key+"/", minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("stat folder marker: %w", err)
	}
	return key, nil
}

// CreateFolder writes the zero byte folder marker.
func (s *S3Store) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := objectKey(parentID, name)
	_, err := s.client.PutObject(ctx, s.bucket, key+"/", bytes.NewReader(nil), 0,
		minio.PutObjectOptions{ContentType: folderMarkerType})
	if err != nil {
		return "", fmt.Errorf("put folder marker: %w", err)
	}
	return key, nil
}

// CreateFile uploads content to <parent>/<name>.
func (s *S3Store) CreateFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := objectKey(parentID, name)
	_, err := s.client.PutObject(ctx, s.bucket, key, content, size,
		minio.PutObjectOptions{ContentType: contentType(name)})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	s.bucketReady = true
	return nil
}

func objectKey(parentID, name string) string {
	return strings.TrimPrefix(path.Join(parentID, name), "/")
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

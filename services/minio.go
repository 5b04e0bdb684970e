package services

import (
	"context"
	"fmt"
	"strings"

	"timetable-lookup/config"
	"timetable-lookup/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore отдаёт расписания из бакета, TIMETABLES_PATH служит префиксом ключей
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIOStore(cfg *config.Config) (*MinIOStore, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.MinIOBucket,
		prefix: objectPrefix(cfg.TimetablesPath),
	}, nil
}

// Open сначала делает StatObject: GetObject падает только при первом чтении
func (s *MinIOStore) Open(ctx context.Context, name string) (*models.TimetableFile, error) {
	objectPath := s.prefix + name

	info, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrTimetableNotFound, s.bucket, objectPath)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return &models.TimetableFile{
		Name:         name,
		Size:         info.Size,
		LastModified: info.LastModified,
		Body:         object,
	}, nil
}

func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

// objectPrefix превращает путь в префикс ключа:
// "./timetables" -> "timetables/", "." и "" -> ""
func objectPrefix(path string) string {
	path = strings.TrimPrefix(path, "./")
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return ""
	}
	return path + "/"
}

package services

import (
	"context"
	"fmt"

	"cdp-analytics/config"
	"cdp-analytics/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ArchiveService uploads an xlsx copy of each committed snapshot to object
// storage.
type ArchiveService struct {
	client *minio.Client
	bucket string
	export *ExportService
	logger *zap.Logger
}

func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

func NewArchiveService(client *minio.Client, bucket string, export *ExportService, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{client: client, bucket: bucket, export: export, logger: logger}
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	s.logger.Info("created archive bucket", zap.String("bucket", s.bucket))
	return nil
}

// Archive stores the current snapshot and returns the object name.
func (s *ArchiveService) Archive(ctx context.Context, run *models.TransformRun) (string, error) {
	buf, err := s.export.ExportXLSX(ctx, CustomerFilter{})
	if err != nil {
		return "", err
	}

	objectName := ArchiveObjectName(run)
	size := int64(buf.Len())
	_, err = s.client.PutObject(ctx, s.bucket, objectName, buf, size, minio.PutObjectOptions{
		ContentType: xlsxContentType,
		UserMetadata: map[string]string{
			"run-id":  run.ID.String(),
			"trigger": run.Trigger,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// ArchiveObjectName partitions archives by run date.
func ArchiveObjectName(run *models.TransformRun) string {
	return fmt.Sprintf("customer_360/%s/%s.xlsx",
		run.StartedAt.UTC().Format("2006/01/02"), run.ID.String())
}

package store

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// S3Store keeps JSON-encoded checkpoints as objects <Prefix><key>.json.
type S3Store struct {
	uploader   s3manageriface.UploaderAPI
	downloader s3manageriface.DownloaderAPI
	bucket     string
	prefix     string
}

// NewS3Store creates a session from cfg. Credentials come from the usual
// AWS environment and shared configuration.
func NewS3Store(cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewValidationError("store.bucket", "required for the s3 store", cfg.Bucket)
	}
	awsConfig := &aws.Config{}
	if cfg.Region != "" {
		awsConfig.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(cfg.ForcePathStyle)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.NewModelError("NewS3Store", "failed to create AWS session", err)
	}
	return NewS3StoreWith(s3manager.NewUploader(sess), s3manager.NewDownloader(sess), cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWith builds a store from explicit transfer managers.
func NewS3StoreWith(up s3manageriface.UploaderAPI, down s3manageriface.DownloaderAPI, bucket, prefix string) *S3Store {
	return &S3Store{uploader: up, downloader: down, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key + ".json"
}

// Load implements gain.ModelStore.
func (s *S3Store) Load(ctx context.Context, key string) (*model.Checkpoint, error) {
	if err := validateKey("S3Store.Load", key); err != nil {
		return nil, err
	}
	buf := aws.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, notFound("S3Store.Load", key)
		}
		return nil, errors.NewModelError("S3Store.Load", "download failed", err)
	}
	var cp model.Checkpoint
	if err := cp.FromJSON(buf.Bytes()); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Save implements gain.ModelStore.
func (s *S3Store) Save(ctx context.Context, key string, cp *model.Checkpoint) error {
	if err := validateKey("S3Store.Save", key); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.ToJSON()
	if err != nil {
		return err
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"run-id":     aws.String(cp.RunID),
			"iterations": aws.String(strconv.Itoa(cp.Iterations)),
		},
	})
	if err != nil {
		return errors.NewModelError("S3Store.Save", "upload failed", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
		return true
	}
	return strings.Contains(err.Error(), s3.ErrCodeNoSuchKey)
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Skotchmaster/userauth/internal/config"
	"github.com/Skotchmaster/userauth/internal/logging"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client    objectPutter
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, cfg config.Blob) (*S3Store, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("blob: cloud name (bucket) is empty")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.APIKey,
			cfg.APISecret,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		bucket:    cfg.CloudName,
		publicURL: publicURL(cfg),
	}, nil
}

func publicURL(cfg config.Blob) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.CloudName
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.CloudName, cfg.Region)
	}
}

func ObjectKey(localPath string) string {
	return uuid.NewString() + "/" + filepath.Base(localPath)
}

func (s *S3Store) Upload(ctx context.Context, localPath string) *UploadResult {
	l := logging.FromContext(ctx).With("svc", "blob.upload")

	if localPath == "" {
		l.Debug("upload_skipped", "reason", "no local file path provided")
		return nil
	}
	defer removeLocal(ctx, localPath)

	f, err := os.Open(localPath)
	if err != nil {
		l.Error("upload_failed", "reason", "cannot open local file", "path", localPath, "error", err)
		return nil
	}
	defer f.Close()

	key := ObjectKey(localPath)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		l.Error("upload_failed", "reason", "put object", "key", key, "error", err)
		return nil
	}

	return &UploadResult{URL: objectURL(s.publicURL, key), Key: key}
}

// objectURL escapes every key segment; file names may carry spaces, '#' or '?'.
func objectURL(base, key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return base + "/" + strings.Join(segs, "/")
}

func removeLocal(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("cleanup_failed", "path", path, "error", err)
	}
}

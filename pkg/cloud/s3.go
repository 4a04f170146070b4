package cloud

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/olimci/sleepsync/pkg/store/config"
)

// maxDeleteBatch is the DeleteObjects limit.
const maxDeleteBatch = 1000

// S3 keeps dated folders as key prefixes in a bucket. Any S3 compatible
// endpoint works; a custom endpoint switches to path-style addressing.
type S3 struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

func NewS3(ctx context.Context, cfg config.S3, timeout time.Duration) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  normalizePrefix(cfg.Prefix),
		timeout: timeout,
	}, nil
}

// EnsureFolder needs no request: a prefix exists once something is under it.
func (s *S3) EnsureFolder(_ context.Context, name string) (Folder, error) {
	return Folder{ID: s.prefix + name + "/", Name: name}, nil
}

func (s *S3) Upload(ctx context.Context, folder Folder, name, localPath string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(folder.ID + name),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s%s: %w", s.bucket, folder.ID, name, err)
	}
	return nil
}

func (s *S3) ListFolders(ctx context.Context) ([]Folder, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var folders []Folder
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			if folder, ok := folderFromPrefix(s.prefix, aws.ToString(cp.Prefix)); ok {
				folders = append(folders, folder)
			}
		}
	}
	return folders, nil
}

func (s *S3) DeleteFolder(ctx context.Context, folder Folder) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var keys []types.ObjectIdentifier
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(folder.ID),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list s3://%s/%s: %w", s.bucket, folder.ID, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	for _, batch := range chunk(keys, maxDeleteBatch) {
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, folder.ID, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete s3://%s/%s: %d objects failed, first %s: %s",
				s.bucket, folder.ID, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func (s *S3) Close() error {
	return nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

package source

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// S3Config configures an S3 source. Endpoint and static credentials are
// optional; without them the default AWS credential chain is used.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Key             string `koanf:"key"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

// ObjectAPI is the subset of the S3 client the source uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 serves a record export stored as one object. The object is
// downloaded again only when its ETag changes.
type S3 struct {
	base
	client ObjectAPI
	bucket string
	key    string

	mu   sync.Mutex
	etag string
	doc  *Document
}

// NewS3 builds an S3 client from cfg.
func NewS3(ctx context.Context, cfg S3Config, opts ...Option) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3WithClient(client, cfg.Bucket, cfg.Key, opts...)
}

// NewS3WithClient creates an S3 source over an existing client.
func NewS3WithClient(client ObjectAPI, bucket, key string, opts ...Option) (*S3, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source: bucket and key are required")
	}
	if _, _, err := FormatOf(key); err != nil {
		return nil, fmt.Errorf("s3 source: %w", err)
	}
	return &S3{base: newBase(TypeS3, opts), client: client, bucket: bucket, key: key}, nil
}

func (s *S3) Name() string { return TypeS3 }

func (s *S3) Snapshot(ctx context.Context, window records.TimeWindow) (*records.Snapshot, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, unavailable(s.Name(), err)
	}
	return s.snapshot(window, doc)
}

func (s *S3) load(ctx context.Context) (*Document, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", s.bucket, s.key, err)
	}
	etag := aws.ToString(head.ETag)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil && etag != "" && etag == s.etag {
		return s.doc, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	doc, err := DecodeDocument(s.key, data)
	if err != nil {
		return nil, err
	}
	if got := aws.ToString(out.ETag); got != "" {
		etag = got
	}
	s.doc, s.etag = doc, etag
	s.logger.Info("record object loaded",
		logging.String("bucket", s.bucket),
		logging.String("key", s.key),
		logging.String("etag", etag),
		logging.Count(len(doc.Records)))
	return doc, nil
}

func (s *S3) Ping(ctx context.Context) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	return unavailable(s.Name(), err)
}

func (s *S3) Close() error { return nil }

// Package s3bank stores bank objects in an S3 compatible bucket.
package s3bank

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
)

// Name is the identifier used in provider configs.
const Name = "s3"

// Client is the subset of the S3 API the backend needs.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Backend registers the S3 backend into a bank.Table.
//
// Options: bucket (required), region, endpoint, path_style, access_key,
// secret_key, session_token. Without access_key the default AWS credential
// chain is used.
type Backend struct{}

// Register implements bank.Backend.
func (Backend) Register(t *bank.Table) {
	t.Register(Name, func(ctx context.Context, opts bank.Options) (bank.Plugin, error) {
		bucket := opts.Get("bucket", "")
		if bucket == "" {
			return nil, fmt.Errorf("option 'bucket' is required")
		}
		client, err := newClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return New(client, bucket), nil
	})
}

func newClient(ctx context.Context, opts bank.Options) (*s3.Client, error) {
	var (
		cfg aws.Config
		err error
	)
	if accessKey := opts.Get("access_key", ""); accessKey != "" {
		cfg = *aws.NewConfig()
		cfg.Region = opts.Get("region", "us-east-1")
		cfg.Credentials = credentials.NewStaticCredentialsProvider(
			accessKey, opts.Get("secret_key", ""), opts.Get("session_token", ""))
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Get("region", "us-east-1")))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	pathStyle, err := strconv.ParseBool(opts.Get("path_style", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid option 'path_style': %w", err)
	}
	endpoint := opts.Get("endpoint", "")

	ctxlog.FromContext(ctx).Debug("Creating S3 bank client.", "region", cfg.Region, "endpoint", endpoint, "path_style", pathStyle)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Store is an S3 bank backend.
type Store struct {
	client Client
	bucket string
}

// New creates a store over bucket.
func New(client Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// CreateObject checks for the key and then writes it. S3 offers no
// conditional put here, so two writers racing on the same key can both
// succeed; callers serialize writes per checkpoint.
func (s *Store) CreateObject(ctx context.Context, key string, value []byte) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return bank.ErrObjectExists
	case !isNotFound(err):
		return wrap("create", key, err)
	}
	return s.put(ctx, "create", key, value)
}

func (s *Store) UpdateObject(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, "update", key, value)
}

func (s *Store) put(ctx context.Context, op, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return wrap(op, key, err)
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, bank.ErrObjectNotFound
		}
		return nil, wrap("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, bank.NewIOError("get", key, true, err)
	}
	return data, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return wrap("delete", key, err)
	}
	return nil
}

// ListObjects pages through ListObjectsV2. S3 returns keys in UTF-8 binary
// order, so the result is already sorted.
func (s *Store) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("list", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// wrap converts an SDK error into a bank.IOError, marking throttling and
// server side failures as transient.
func wrap(op, key string, err error) error {
	return bank.NewIOError(op, key, isTransient(err), err)
}

func isTransient(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
			return true
		}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "RequestTimeout", "Throttling", "InternalError", "ServiceUnavailable":
			return true
		}
	}
	return false
}

package s3bank

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/bank/banktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket implementing Client.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	// failWith, when set, is returned by every call.
	failWith error
	pageSize int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 pages by pageSize using the last returned key as the
// continuation token.
func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	if f.pageSize > 0 && len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestConformance(t *testing.T) {
	banktest.RunConformance(t, func(t *testing.T) bank.Plugin {
		return New(newFakeS3(), "bucket")
	})
}

func TestListObjects_Paginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.pageSize = 2
	s := New(fake, "bucket")

	for _, k := range []string{"p/e", "p/a", "p/d", "p/b", "p/c", "x/a"} {
		require.NoError(t, s.UpdateObject(ctx, k, []byte(k)))
	}

	keys, err := s.ListObjects(ctx, "p/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a", "p/b", "p/c", "p/d", "p/e"}, keys)
}

func TestErrors_ServerFailuresAreTransient(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.failWith = &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}},
			Err:      errors.New("service unavailable"),
		},
	}
	s := New(fake, "bucket")

	err := s.UpdateObject(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.True(t, bank.IsTransient(err))

	_, err = s.GetObject(ctx, "k")
	assert.True(t, bank.IsTransient(err))
}

func TestErrors_ClientFailuresAreNotTransient(t *testing.T) {
	fake := newFakeS3()
	fake.failWith = &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusForbidden}},
			Err:      errors.New("access denied"),
		},
	}
	s := New(fake, "bucket")

	err := s.DeleteObject(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, bank.IsTransient(err))

	var ioErr *bank.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "delete", ioErr.Op)
}

func TestBackendRequiresBucket(t *testing.T) {
	table := bank.NewTable()
	Backend{}.Register(table)

	_, err := table.Open(context.Background(), Name, bank.Options{"region": "eu-west-1"})
	assert.ErrorContains(t, err, "option 'bucket' is required")
}

func TestBackendWithStaticCredentials(t *testing.T) {
	table := bank.NewTable()
	Backend{}.Register(table)

	p, err := table.Open(context.Background(), Name, bank.Options{
		"bucket":     "protection",
		"access_key": "AKIDEXAMPLE",
		"secret_key": "secret",
		"endpoint":   "http://127.0.0.1:9000",
		"path_style": "true",
	})
	require.NoError(t, err)
	assert.IsType(t, &Store{}, p)

	_, err = table.Open(context.Background(), Name, bank.Options{
		"bucket":     "protection",
		"access_key": "AKIDEXAMPLE",
		"path_style": "sometimes",
	})
	assert.ErrorContains(t, err, "invalid option 'path_style'")
}

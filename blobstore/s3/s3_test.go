package s3_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/katalvlaran/wavemoth/blobstore"
	s3store "github.com/katalvlaran/wavemoth/blobstore/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)

	return out, args.Error(1)
}

func (m *mockClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)

	return out, args.Error(1)
}

func (m *mockClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)

	return out, args.Error(1)
}

func (m *mockClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)

	return out, args.Error(1)
}

func (m *mockClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)

	return out, args.Error(1)
}

func keyIs(key string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		switch v := in.(type) {
		case *s3.HeadObjectInput:
			return aws.ToString(v.Bucket) == "tables" && aws.ToString(v.Key) == key
		case *s3.GetObjectInput:
			return aws.ToString(v.Bucket) == "tables" && aws.ToString(v.Key) == key
		case *s3.PutObjectInput:
			return aws.ToString(v.Bucket) == "tables" && aws.ToString(v.Key) == key
		case *s3.DeleteObjectInput:
			return aws.ToString(v.Bucket) == "tables" && aws.ToString(v.Key) == key
		}

		return false
	})
}

func TestOpen(t *testing.T) {
	c := new(mockClient)
	s := s3store.NewStore(c, "tables", "wavemoth/")

	c.On("HeadObject", mock.Anything, keyIs("wavemoth/missing")).Return(nil, &types.NotFound{}).Once()
	_, err := s.Open(context.Background(), "missing")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	c.On("HeadObject", mock.Anything, keyIs("wavemoth/rev1/16.dat")).
		Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil).Once()
	b, err := s.Open(context.Background(), "rev1/16.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Size())
	c.AssertExpectations(t)
}

func TestReadAtIssuesRangedGet(t *testing.T) {
	c := new(mockClient)
	s := s3store.NewStore(c, "tables", "")
	data := []byte("0123456789")

	c.On("HeadObject", mock.Anything, keyIs("f")).
		Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil).Once()
	c.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Range) == "bytes=2-5"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[2:6]))}, nil).Once()
	// A read past the end is clamped to the object size.
	c.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Range) == "bytes=8-9"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[8:]))}, nil).Once()

	b, err := s.Open(context.Background(), "f")
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := b.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(buf[:n]))

	n, err = b.ReadAt(buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "89", string(buf[:n]))

	_, err = b.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)
	c.AssertExpectations(t)
}

func TestPutDelete(t *testing.T) {
	c := new(mockClient)
	s := s3store.NewStore(c, "tables", "p")

	c.On("PutObject", mock.Anything, keyIs("p/a")).Return(&s3.PutObjectOutput{}, nil).Once()
	require.NoError(t, s.Put(context.Background(), "a", []byte("abc")))

	c.On("DeleteObject", mock.Anything, keyIs("p/a")).Return(&s3.DeleteObjectOutput{}, nil).Once()
	require.NoError(t, s.Delete(context.Background(), "a"))

	c.On("DeleteObject", mock.Anything, keyIs("p/b")).Return(nil, &types.NoSuchKey{}).Once()
	require.NoError(t, s.Delete(context.Background(), "b"))
	c.AssertExpectations(t)
}

func TestList(t *testing.T) {
	c := new(mockClient)
	s := s3store.NewStore(c, "tables", "p")

	c.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "p/rev1"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("p/rev1/32.dat")},
			{Key: aws.String("p/rev1/16.dat")},
		},
	}, nil).Once()

	names, err := s.List(context.Background(), "rev1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rev1/16.dat", "rev1/32.dat"}, names)
	c.AssertExpectations(t)
}

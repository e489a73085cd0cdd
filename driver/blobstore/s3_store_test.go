package blobstore

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3API covering the calls the store makes.
type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, awserr.New("NotFound", "not found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), "bucket")
	ctx := context.Background()

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, "k", []byte("payload")))

	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.ReadAll(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, store.Remove(ctx, "k"))
	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3StoreReadMissing(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), "bucket")

	_, err := store.ReadAll(context.Background(), "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = store.OpenRead(context.Background(), "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := Open("memory", "", "", "")
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("fs", func(t *testing.T) {
		store, err := Open("fs", t.TempDir(), "", "")
		require.NoError(t, err)
		assert.IsType(t, &FSStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open("ftp", "", "", "")
		assert.Error(t, err)
	})
}

package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket serves ListObjectsV2 one key per page to exercise pagination.
type fakeBucket struct {
	objects map[string]string
	order   []string
	headErr error
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range f.order {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}

	out := &s3.ListObjectsV2Output{}
	for i := start; i < len(f.order); i++ {
		key := f.order[i]
		if len(key) < len(aws.ToString(in.Prefix)) || key[:len(aws.ToString(in.Prefix))] != aws.ToString(in.Prefix) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		if i+1 < len(f.order) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(f.order[i+1])
		}
		break
	}
	return out, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func newFakeBucket(objects map[string]string, order ...string) *fakeBucket {
	return &fakeBucket{objects: objects, order: order}
}

func TestSpacesStore_List(t *testing.T) {
	bucket := newFakeBucket(nil,
		"cards/Мифик/kraken.png",
		"cards/Мифик/nested/skip.png",
		"cards/Мифик/yeti.jpg",
		"cards/Редкий/fox.png",
	)
	store := newSpacesStore(bucket, "cardbox", "/cards/")

	got, err := store.List(context.Background(), "Мифик")
	require.NoError(t, err)
	assert.Equal(t, []string{"Мифик/kraken.png", "Мифик/yeti.jpg"}, got)
}

func TestSpacesStore_Read(t *testing.T) {
	bucket := newFakeBucket(map[string]string{"cards/Секрет/dragon.png": "fire"})
	store := newSpacesStore(bucket, "cardbox", "cards")

	data, err := store.Read(context.Background(), "Секрет/dragon.png")
	require.NoError(t, err)
	assert.Equal(t, "fire", string(data))

	_, err = store.Read(context.Background(), "Секрет/missing.png")
	var noKey *types.NoSuchKey
	assert.True(t, errors.As(err, &noKey))
}

func TestSpacesStore_Stat(t *testing.T) {
	bucket := newFakeBucket(map[string]string{"cards/Секрет/dragon.png": "fire"})
	store := newSpacesStore(bucket, "cardbox", "cards")

	require.NoError(t, store.Stat(context.Background(), "Секрет/dragon.png"))
	assert.ErrorIs(t, store.Stat(context.Background(), "Секрет/gone.png"), ErrNotExist)

	bucket.headErr = errors.New("503 slow down")
	err := store.Stat(context.Background(), "Секрет/dragon.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotExist)
}

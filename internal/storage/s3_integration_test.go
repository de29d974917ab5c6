//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/quizforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_StoreLoadDelete(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "quizforge-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))

	key := "courses/course-1/file-1-notes.txt"
	require.NoError(t, client.Store(ctx, key, []byte("deep learning"), "text/plain"))

	data, err := client.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "deep learning", string(data))

	url, err := client.GenerateDownloadURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, "quizforge-test")

	require.NoError(t, client.Delete(ctx, key))
	_, err = client.Load(ctx, key)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

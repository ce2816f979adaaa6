package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	putKey, getKey string
	err            error
}

func (p *fakePresigner) PresignPut(ctx context.Context, key string) (string, error) {
	p.putKey = key
	if p.err != nil {
		return "", p.err
	}
	return "https://s3.local/put/" + key, nil
}

func (p *fakePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	p.getKey = key
	if p.err != nil {
		return "", p.err
	}
	return "https://s3.local/get/" + key, nil
}

func TestRequestUpload(t *testing.T) {
	pr := &fakePresigner{}
	s := NewFileService(pr)
	s.now = func() time.Time { return time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC) }

	ticket, err := s.RequestUpload(context.Background(), "u1", "cat.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ticket.Key, "users/u1/2025/02/03/"), ticket.Key)
	assert.True(t, strings.HasSuffix(ticket.Key, ".png"), ticket.Key)
	assert.Equal(t, "https://s3.local/put/"+ticket.Key, ticket.UploadURL)
	assert.Equal(t, ticket.Key, pr.putKey)

	_, err = s.RequestUpload(context.Background(), "", "cat.png")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.RequestUpload(context.Background(), "u1", " ")
	require.ErrorIs(t, err, common.ErrorValidation)

	pr.err = errBoom{}
	_, err = s.RequestUpload(context.Background(), "u1", "cat.png")
	require.ErrorContains(t, err, "boom")
}

func TestDownloadURL(t *testing.T) {
	pr := &fakePresigner{}
	s := NewFileService(pr)

	url, err := s.DownloadURL(context.Background(), &models.Post{FileRef: ptr("https://cdn.example.com/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", url)
	assert.Empty(t, pr.getKey, "remote urls are not presigned")

	url, err = s.DownloadURL(context.Background(), &models.Post{FileRef: ptr("users/u1/2025/01/01/x.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/get/users/u1/2025/01/01/x.png", url)

	_, err = s.DownloadURL(context.Background(), &models.Post{})
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.DownloadURL(context.Background(), &models.Post{FileRef: ptr("")})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

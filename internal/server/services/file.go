package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
)

// UploadTicket tells the client where to PUT a file and which key to put
// into the post's fileRef afterwards.
type UploadTicket struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// FileService hands out presigned URLs; file bytes never pass through the
// server.
type FileService struct {
	presigner storage.Presigner
	now       func() time.Time
}

// NewFileService constructs a FileService that signs URLs with presigner.
func NewFileService(presigner storage.Presigner) *FileService {
	return &FileService{presigner: presigner, now: time.Now}
}

// RequestUpload reserves a fresh storage key under the user's prefix and
// presigns a PUT for it.
func (s *FileService) RequestUpload(ctx context.Context, userID, filename string) (*UploadTicket, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename must not be empty", common.ErrorValidation)
	}

	key := storage.NewStorageKey(userID, filename, s.now())
	url, err := s.presigner.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	return &UploadTicket{Key: key, UploadURL: url}, nil
}

// DownloadURL resolves the post's file reference to something a browser can
// fetch: remote URLs as-is, storage keys as a presigned GET.
func (s *FileService) DownloadURL(ctx context.Context, post *models.Post) (string, error) {
	if post == nil || post.FileRef == nil || *post.FileRef == "" {
		return "", fmt.Errorf("%w: post has no file", common.ErrorNotFound)
	}

	ref := *post.FileRef
	if storage.IsRemoteURL(ref) {
		return ref, nil
	}

	url, err := s.presigner.PresignGet(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("error presigning download: %w", err)
	}
	return url, nil
}

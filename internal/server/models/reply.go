package models

import (
	"time"

	"github.com/google/uuid"
)

// Reply is a comment attached to a post. Its owner is AuthorID, which is
// independent of the post's owner.
type Reply struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	AuthorID  string       `json:"authorId"`
	PostID    string       `json:"postId"`
	CreatedAt time.Time    `json:"createdAt"`
	Author    *UserSummary `json:"author,omitempty"`
}

// NewReply validates content and returns a Reply with a fresh id.
func NewReply(postID, authorID, content string) (*Reply, error) {
	if postID == "" {
		return nil, invalid("postId", "must not be empty")
	}
	if authorID == "" {
		return nil, invalid("authorId", "must not be empty")
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	return &Reply{
		ID:        uuid.NewString(),
		Content:   content,
		AuthorID:  authorID,
		PostID:    postID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxTitleLength = 200

// Post is a titled piece of content owned by AuthorID. Author and Replies
// are loaded relations and are only populated by single-post reads.
type Post struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Published bool         `json:"published"`
	FileRef   *string      `json:"fileRef"`
	AuthorID  string       `json:"authorId"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Author    *UserSummary `json:"author,omitempty"`
	Replies   []Reply      `json:"replies"`
}

// PostInput carries the fields accepted on creation.
type PostInput struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Published bool    `json:"published"`
	FileRef   *string `json:"fileRef"`
}

// PostPatch is a partial update; nil fields are left unchanged. An empty
// or null fileRef detaches the file.
type PostPatch struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
	FileRef   *string `json:"fileRef"`
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("title", "must be at most 200 characters")
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalid("content", "must not be empty")
	}
	return nil
}

// NewPost validates in and returns a Post owned by authorID.
func NewPost(authorID string, in PostInput) (*Post, error) {
	if authorID == "" {
		return nil, invalid("authorId", "must not be empty")
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Post{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
		FileRef:   normalizeRef(in.FileRef),
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
		Replies:   []Reply{},
	}, nil
}

// UnmarshalJSON maps "fileRef": null to an empty ref so that it detaches
// the file instead of reading as absent. Unknown fields are rejected.
func (p *PostPatch) UnmarshalJSON(data []byte) error {
	type plain PostPatch
	var out plain

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return err
	}

	if out.FileRef == nil {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		if raw, ok := fields["fileRef"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			detach := ""
			out.FileRef = &detach
		}
	}

	*p = PostPatch(out)
	return nil
}

// Validate checks the fields that are present in the patch.
func (p PostPatch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Content != nil {
		if err := validateContent(*p.Content); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Published == nil && p.FileRef == nil
}

// Apply copies the set fields of patch onto post. An empty FileRef
// detaches the file.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Published != nil {
		post.Published = *p.Published
	}
	if p.FileRef != nil {
		post.FileRef = normalizeRef(p.FileRef)
	}
	post.UpdatedAt = time.Now().UTC()
}

func normalizeRef(ref *string) *string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil
	}
	v := strings.TrimSpace(*ref)
	return &v
}

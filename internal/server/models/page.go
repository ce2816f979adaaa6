package models

import "encoding/json"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams selects a page of posts. Search is matched as a
// case-sensitive substring of title or content.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func DefaultListParams() ListParams {
	return ListParams{Page: DefaultPage, Limit: DefaultLimit}
}

// Validate rejects out-of-range paging values. Callers fill defaults for
// absent values before validating, so an explicit zero is an error.
func (p ListParams) Validate() error {
	if p.Page < 1 {
		return invalid("page", "must be at least 1")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return invalid("limit", "must be between 1 and 100")
	}
	return nil
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PostPage is one page of posts, newest first.
type PostPage struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// MarshalJSON leaves replies out of list items; they are only loaded for
// single-post reads.
func (p PostPage) MarshalJSON() ([]byte, error) {
	type listItem struct {
		Post
		Replies []Reply `json:"replies,omitempty"`
	}
	items := make([]listItem, len(p.Posts))
	for i := range p.Posts {
		items[i].Post = p.Posts[i]
	}
	return json.Marshal(struct {
		Posts []listItem `json:"posts"`
		Total int        `json:"total"`
		Page  int        `json:"page"`
		Limit int        `json:"limit"`
	}{items, p.Total, p.Page, p.Limit})
}

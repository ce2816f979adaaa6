package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/notify"
	"github.com/dmitrijs2005/postboard/internal/server/policy"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
)

// PostService implements post and reply CRUD. Every mutation of an
// existing post or reply goes through policy.RequireOwner.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    notify.Notifier
	log         logging.Logger
}

// NewPostService constructs a PostService over db and the repositories vended by m.
func NewPostService(db *sql.DB, m repomanager.RepositoryManager, notifier notify.Notifier, log logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		notifier:    notifier,
		log:         log.With("module", "posts"),
	}
}

// CreatePost stores a new post owned by ownerID.
func (s *PostService) CreatePost(ctx context.Context, ownerID string, in models.PostInput) (*models.Post, error) {
	if err := checkFileRef(ownerID, in.FileRef); err != nil {
		return nil, err
	}

	post, err := models.NewPost(ownerID, in)
	if err != nil {
		return nil, err
	}

	owner, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error looking up author: %w", err)
	}

	if err := s.repomanager.Posts(s.db).Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	summary := owner.Summary()
	post.Author = &summary

	s.log.Info(ctx, "post created", "post_id", post.ID, "author_id", ownerID)
	s.notifier.Notify(ctx, notify.Message{
		To:       owner.Email,
		Template: notify.TemplatePostCreated,
		Data: map[string]string{
			"name":      owner.Name,
			"title":     post.Title,
			"postId":    post.ID,
			"published": publishedFlag(post.Published),
		},
	})

	return post, nil
}

// ListPosts returns a newest-first page together with the total number of
// matching posts.
func (s *PostService) ListPosts(ctx context.Context, params models.ListParams) (*models.PostPage, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Posts(s.db)

	items, err := repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	total, err := repo.Count(ctx, params.Search)
	if err != nil {
		return nil, fmt.Errorf("error counting posts: %w", err)
	}

	return &models.PostPage{Posts: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetPost returns the post with its author and replies, oldest reply first.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if !models.ValidID(id) {
		return nil, common.ErrorNotFound
	}

	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	replies, err := s.repomanager.Replies(s.db).ListByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading replies: %w", err)
	}
	post.Replies = replies

	return post, nil
}

// UpdatePost applies patch if actorID owns the post. The row stays locked
// from the ownership check until the write commits.
func (s *PostService) UpdatePost(ctx context.Context, id, actorID string, patch models.PostPatch) (*models.Post, error) {
	if !models.ValidID(id) {
		return nil, common.ErrorNotFound
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := checkFileRef(actorID, patch.FileRef); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.RequireOwner(post.AuthorID, actorID); err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}

		patch.Apply(post)
		return repo.Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	return s.GetPost(ctx, id)
}

// DeletePost removes the post and, through the schema, its replies.
func (s *PostService) DeletePost(ctx context.Context, id, actorID string) error {
	if !models.ValidID(id) {
		return common.ErrorNotFound
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.RequireOwner(post.AuthorID, actorID); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

// CreateReply adds a reply to an existing post. Anyone signed in may reply.
func (s *PostService) CreateReply(ctx context.Context, postID, actorID, content string) (*models.Reply, error) {
	if !models.ValidID(postID) {
		return nil, common.ErrorNotFound
	}

	reply, err := models.NewReply(postID, actorID, content)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Posts(s.db).GetByID(ctx, postID); err != nil {
		return nil, err
	}

	// A post deleted after the check above surfaces as common.ErrorConstraint.
	if err := s.repomanager.Replies(s.db).Create(ctx, reply); err != nil {
		return nil, err
	}

	if author, err := s.repomanager.Users(s.db).GetByID(ctx, actorID); err == nil {
		summary := author.Summary()
		reply.Author = &summary
	} else {
		s.log.Warn(ctx, "reply author lookup failed", "reply_id", reply.ID, "error", err)
	}

	return reply, nil
}

// DeleteReply removes a reply owned by actorID. Owning the parent post does
// not grant this.
func (s *PostService) DeleteReply(ctx context.Context, replyID, actorID string) error {
	if !models.ValidID(replyID) {
		return common.ErrorNotFound
	}

	repo := s.repomanager.Replies(s.db)

	reply, err := repo.GetByID(ctx, replyID)
	if err != nil {
		return err
	}
	if err := policy.RequireOwner(reply.AuthorID, actorID); err != nil {
		return err
	}
	return repo.Delete(ctx, replyID)
}

// --- helpers below ---

// checkFileRef accepts remote URLs and keys under the actor's own prefix.
// An empty ref detaches the file and is always fine.
func checkFileRef(actorID string, ref *string) error {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" || storage.IsRemoteURL(v) || storage.IsOwnedKey(actorID, v) {
		return nil
	}
	return fmt.Errorf("%w: fileRef must be an uploaded key or an http(s) URL", common.ErrorValidation)
}

func publishedFlag(published bool) string {
	if !published {
		return ""
	}
	return strconv.FormatBool(published)
}

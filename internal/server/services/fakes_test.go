package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/notify"
	postsrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	repliesrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/replies"
	usersrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for the three tables, with the same
// uniqueness, compare-and-swap and cascade behaviour as the schema.
type memStore struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*models.User
	posts   map[string]*models.Post
	order   map[string]int
	replies map[string]*models.Reply

	// hooks for failure injection
	createUserErr error
	rotateHook    func()
	createReplyFn func(r *models.Reply) error
	listErr       error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		posts:   map[string]*models.Post{},
		order:   map[string]int{},
		replies: map[string]*models.Reply{},
	}
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type fakeUsersRepo struct{ st *memStore }

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.createUserErr != nil {
		return f.st.createUserErr
	}
	for _, existing := range f.st.users {
		if existing.Email == u.Email {
			return common.ErrorAlreadyExists
		}
	}
	c := *u
	c.RefreshTokenHash = clonePtr(u.RefreshTokenHash)
	f.st.users[u.ID] = &c
	return nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, u := range f.st.users {
		if u.Email == email {
			c := *u
			c.RefreshTokenHash = clonePtr(u.RefreshTokenHash)
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	u, ok := f.st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	c.RefreshTokenHash = clonePtr(u.RefreshTokenHash)
	return &c, nil
}

func (f *fakeUsersRepo) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	u, ok := f.st.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshTokenHash = clonePtr(hash)
	return nil
}

func (f *fakeUsersRepo) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	if f.st.rotateHook != nil {
		f.st.rotateHook()
	}
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	u, ok := f.st.users[id]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = &newHash
	return true, nil
}

type fakePostsRepo struct{ st *memStore }

func (f *fakePostsRepo) withAuthor(p *models.Post) models.Post {
	c := *p
	c.FileRef = clonePtr(p.FileRef)
	c.Replies = nil
	if u, ok := f.st.users[p.AuthorID]; ok {
		s := u.Summary()
		c.Author = &s
	}
	return c
}

func (f *fakePostsRepo) Create(ctx context.Context, p *models.Post) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if _, ok := f.st.users[p.AuthorID]; !ok {
		return common.ErrorConstraint
	}
	c := *p
	c.FileRef = clonePtr(p.FileRef)
	c.Author, c.Replies = nil, nil
	f.st.posts[p.ID] = &c
	f.st.seq++
	f.st.order[p.ID] = f.st.seq
	return nil
}

func (f *fakePostsRepo) matching(search string) []*models.Post {
	var out []*models.Post
	for _, p := range f.st.posts {
		if search == "" || strings.Contains(p.Title, search) || strings.Contains(p.Content, search) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.st.order[out[i].ID] > f.st.order[out[j].ID] })
	return out
}

func (f *fakePostsRepo) List(ctx context.Context, params models.ListParams) ([]models.Post, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.listErr != nil {
		return nil, f.st.listErr
	}
	all := f.matching(params.Search)
	result := []models.Post{}
	for i := params.Offset(); i < len(all) && len(result) < params.Limit; i++ {
		result = append(result, f.withAuthor(all[i]))
	}
	return result, nil
}

func (f *fakePostsRepo) Count(ctx context.Context, search string) (int, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	return len(f.matching(search)), nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	p, ok := f.st.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := f.withAuthor(p)
	return &c, nil
}

func (f *fakePostsRepo) GetForUpdate(ctx context.Context, id string) (*models.Post, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	p, ok := f.st.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	c.FileRef = clonePtr(p.FileRef)
	return &c, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, p *models.Post) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	existing, ok := f.st.posts[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	existing.Title, existing.Content, existing.Published = p.Title, p.Content, p.Published
	existing.FileRef = clonePtr(p.FileRef)
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id string) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if _, ok := f.st.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.st.posts, id)
	for rid, r := range f.st.replies {
		if r.PostID == id {
			delete(f.st.replies, rid)
		}
	}
	return nil
}

type fakeRepliesRepo struct{ st *memStore }

func (f *fakeRepliesRepo) Create(ctx context.Context, r *models.Reply) error {
	if f.st.createReplyFn != nil {
		if err := f.st.createReplyFn(r); err != nil {
			return err
		}
	}
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if _, ok := f.st.posts[r.PostID]; !ok {
		return common.ErrorConstraint
	}
	c := *r
	c.Author = nil
	f.st.replies[r.ID] = &c
	f.st.seq++
	f.st.order[r.ID] = f.st.seq
	return nil
}

func (f *fakeRepliesRepo) ListByPost(ctx context.Context, postID string) ([]models.Reply, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	result := []models.Reply{}
	for _, r := range f.st.replies {
		if r.PostID != postID {
			continue
		}
		c := *r
		if u, ok := f.st.users[r.AuthorID]; ok {
			s := u.Summary()
			c.Author = &s
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return f.st.order[result[i].ID] < f.st.order[result[j].ID] })
	return result, nil
}

func (f *fakeRepliesRepo) GetByID(ctx context.Context, id string) (*models.Reply, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	r, ok := f.st.replies[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRepliesRepo) Delete(ctx context.Context, id string) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if _, ok := f.st.replies[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.st.replies, id)
	return nil
}

type fakeRepoManager struct{ st *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository     { return &fakeUsersRepo{m.st} }
func (m *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository     { return &fakePostsRepo{m.st} }
func (m *fakeRepoManager) Replies(db dbx.DBTX) repliesrepo.Repository { return &fakeRepliesRepo{m.st} }

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) Notify(ctx context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *fakeRecorder) AuthFailure(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[op]++
}

func (r *fakeRecorder) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

// seedUser inserts a user directly, bypassing bcrypt.
func seedUser(st *memStore, email, name string) *models.User {
	u, err := models.NewUser(email, "$2a$04$unused", name)
	if err != nil {
		panic(err)
	}
	u.CreatedAt = time.Now().UTC()
	st.mu.Lock()
	st.users[u.ID] = u
	st.mu.Unlock()
	return u
}

// Package httpapi exposes the Postboard services over JSON/HTTP using chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/metrics"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

type UserAPI interface {
	Register(ctx context.Context, email, password, name string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, userID string) (string, error)
	GetUser(ctx context.Context, userID string) (*models.UserSummary, error)
}

type PostAPI interface {
	CreatePost(ctx context.Context, ownerID string, in models.PostInput) (*models.Post, error)
	ListPosts(ctx context.Context, params models.ListParams) (*models.PostPage, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id, actorID string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id, actorID string) error
	CreateReply(ctx context.Context, postID, actorID, content string) (*models.Reply, error)
	DeleteReply(ctx context.Context, replyID, actorID string) error
}

type FileAPI interface {
	RequestUpload(ctx context.Context, userID, filename string) (*services.UploadTicket, error)
	DownloadURL(ctx context.Context, post *models.Post) (string, error)
}

// TokenVerifier checks access tokens. *auth.Issuer satisfies it.
type TokenVerifier interface {
	ParseAccess(token string) (*auth.Claims, error)
}

type Server struct {
	address string
	users   UserAPI
	posts   PostAPI
	files   FileAPI
	tokens  TokenVerifier
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewServer wires the HTTP handlers to the services.
func NewServer(address string, l logging.Logger, users UserAPI, posts PostAPI, files FileAPI,
	tokens TokenVerifier, m *metrics.Metrics) *Server {
	return &Server{
		address: address,
		users:   users,
		posts:   posts,
		files:   files,
		tokens:  tokens,
		metrics: m,
		logger:  l.With("module", "http_server"),
	}
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(s.authMiddleware).Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/me", s.handleMe)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.handleListPosts)
		r.Get("/{id}", s.handleGetPost)
		r.Get("/{id}/file", s.handleGetPostFile)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/", s.handleCreatePost)
			r.Post("/uploads", s.handleRequestUpload)
			r.Patch("/{id}", s.handleUpdatePost)
			r.Delete("/{id}", s.handleDeletePost)
			r.Post("/{id}/replies", s.handleCreateReply)
			r.Delete("/replies/{replyId}", s.handleDeleteReply)
		})
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

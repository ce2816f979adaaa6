// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, refresh-token rotation and
// logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/notify"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email and
	// for a wrong password alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	// ErrInvalidRefreshToken covers every refresh rejection.
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
)

// AuthResult is returned by Register, Login and RefreshToken.
type AuthResult struct {
	User         models.UserSummary `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// AuthRecorder counts rejected authentication attempts.
type AuthRecorder interface {
	AuthFailure(op string)
}

type nopAuthRecorder struct{}

func (nopAuthRecorder) AuthFailure(string) {}

// UserService provides authentication-related operations:
// - Register: create users and start their first session
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate the refresh token and mint a new pair
// - Logout: end the session by clearing the stored refresh-token hash
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	notifier    notify.Notifier
	recorder    AuthRecorder
	log         logging.Logger
	bcryptCost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, notifier notify.Notifier,
	cfg *config.Config, log logging.Logger, recorder AuthRecorder) *UserService {
	if recorder == nil {
		recorder = nopAuthRecorder{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		notifier:    notifier,
		recorder:    recorder,
		log:         log.With("module", "users"),
		bcryptCost:  cfg.BcryptCost,
	}
}

// Register creates an account and signs it in.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	if err := models.ValidateCredentials(email, password, name); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", common.ErrorAlreadyExists)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	plain := []byte(password)
	passwordHash, err := bcrypt.GenerateFromPassword(plain, s.bcryptCost)
	common.WipeByteArray(plain)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := models.NewUser(email, string(passwordHash), name)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}
	hash := auth.HashRefreshToken(pair.RefreshToken)
	user.RefreshTokenHash = &hash

	// The unique constraint still catches a registration racing the check above.
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: email already registered", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	s.notifier.Notify(ctx, notify.Message{
		To:       user.Email,
		Template: notify.TemplateWelcome,
		Data:     map[string]string{"name": user.Name, "email": user.Email},
	})

	return &AuthResult{User: user.Summary(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Login verifies the password and starts a new session, replacing any
// previous refresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Spend the same bcrypt work as for a real account.
			_ = bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(password))
			s.recorder.AuthFailure("login")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recorder.AuthFailure("login")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	hash := auth.HashRefreshToken(pair.RefreshToken)
	if err := repo.SetRefreshTokenHash(ctx, user.ID, &hash); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &AuthResult{User: user.Summary(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// RefreshToken exchanges a valid refresh token for a new pair. The presented
// token stops working once this returns; of two concurrent refreshes with
// the same token only one succeeds.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, s.rejectRefresh(ctx, "unparseable", err)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.rejectRefresh(ctx, "unknown user", err)
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if user.RefreshTokenHash == nil {
		return nil, s.rejectRefresh(ctx, "no active session", nil)
	}
	if !auth.MatchRefreshToken(*user.RefreshTokenHash, refreshToken) {
		return nil, s.rejectRefresh(ctx, "hash mismatch", nil)
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	swapped, err := repo.RotateRefreshTokenHash(ctx, user.ID, *user.RefreshTokenHash, auth.HashRefreshToken(pair.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	if !swapped {
		return nil, s.rejectRefresh(ctx, "lost rotation race", nil)
	}

	return &AuthResult{User: user.Summary(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout clears the stored refresh-token hash. Access tokens already issued
// remain valid until they expire.
func (s *UserService) Logout(ctx context.Context, userID string) (string, error) {
	repo := s.repomanager.Users(s.db)
	if err := repo.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		return "", fmt.Errorf("error clearing refresh token: %w", err)
	}
	return common.LoggedOutMessage, nil
}

// GetUser returns the public summary of a user. Ids that are not uuids
// are reported as not found without a database round trip.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.UserSummary, error) {
	if !models.ValidID(userID) {
		return nil, fmt.Errorf("%w: user %q", common.ErrorNotFound, userID)
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// --- helpers below ---

func (s *UserService) rejectRefresh(ctx context.Context, reason string, cause error) error {
	s.recorder.AuthFailure("refresh")
	s.log.Debug(ctx, "refresh rejected", "reason", reason, "error", cause)
	return ErrInvalidRefreshToken
}

func (s *UserService) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		secret, _ := common.MakeRandHexString(16)
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	})
	return s.dummyHash
}

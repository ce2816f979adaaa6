// Package grpc exposes a small identity service so sibling services can
// validate Postboard access tokens and resolve user profiles without
// sharing the signing secret.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"google.golang.org/grpc"
)

type TokenVerifier interface {
	ParseAccess(token string) (*auth.Claims, error)
}

// UserLookup is the subset of the user service the identity service reads.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.UserSummary, error)
}

type GRPCServer struct {
	address string
	users   UserLookup
	tokens  TokenVerifier
	logger  logging.Logger
}

// NewGRPCServer builds the identity server; call Run to serve it.
func NewGRPCServer(a string, l logging.Logger, users UserLookup, tokens TokenVerifier) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   users,
		tokens:  tokens,
	}
}

// newServer builds the grpc.Server with interceptors and the identity
// service registered. Split out so tests can serve it on bufconn.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&IdentityServiceDesc, s)
	return srv
}

// Run serves gRPC on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/postboard/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// VerifyAccessToken returns the user id and email carried by a valid access token.
func (s *GRPCServer) VerifyAccessToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := s.tokens.ParseAccess(req.GetValue())
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return structpb.NewStruct(map[string]interface{}{
		"user_id": claims.UserID(),
		"email":   claims.Email,
	})
}

// GetUser returns the public profile of a user.
func (s *GRPCServer) GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "user id is required")
	}

	if caller, ok := userIDFromContext(ctx); ok {
		s.logger.Debug(ctx, "GetUser", "caller", caller, "user_id", req.GetValue())
	}

	user, err := s.users.GetUser(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

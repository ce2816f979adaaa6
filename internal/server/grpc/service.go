package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	IdentityServiceName = "postboard.identity.v1.IdentityService"

	VerifyAccessTokenMethod = "/" + IdentityServiceName + "/VerifyAccessToken"
	GetUserMethod           = "/" + IdentityServiceName + "/GetUser"
)

// IdentityServer is implemented by *GRPCServer. Messages are protobuf
// well-known types, so no generated code is needed on either side.
type IdentityServer interface {
	VerifyAccessToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var IdentityServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyAccessToken", Handler: verifyAccessTokenHandler},
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "postboard/identity/v1/identity.proto",
}

func verifyAccessTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).VerifyAccessToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyAccessTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IdentityServer).VerifyAccessToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetUserMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IdentityServer).GetUser(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// IdentityClient calls the identity service over an existing connection.
type IdentityClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityClient(cc grpc.ClientConnInterface) *IdentityClient {
	return &IdentityClient{cc: cc}
}

func (c *IdentityClient) VerifyAccessToken(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifyAccessTokenMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser requires the caller's access token in the access_token metadata key.
func (c *IdentityClient) GetUser(ctx context.Context, userID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetUserMethod, wrapperspb.String(userID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

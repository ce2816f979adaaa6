package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeUsers{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&fakeUsers{})
	srv.address = "127.0.0.1:99999"

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

func TestIdentityService_OverTheWire(t *testing.T) {
	users := &fakeUsers{users: map[string]models.UserSummary{
		"u1": {ID: "u1", Email: "a@x.io", Name: "A"},
	}}
	s, issuer := newTestServer(users)

	lis := bufconn.Listen(1 << 20)
	srv := s.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := NewIdentityClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pair, err := issuer.IssuePair("u1", "a@x.io")
	require.NoError(t, err)

	claims, err := client.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.GetFields()["user_id"].GetStringValue())

	_, err = client.GetUser(ctx, "u1")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, pair.AccessToken)
	user, err := client.GetUser(authed, "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", user.GetFields()["name"].GetStringValue())

	_, err = client.GetUser(authed, "ghost")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/vibration-alarm/internal/api/grpc/control"
	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// armService is a tiny Service implementation for client tests.
type armService struct {
	mu    sync.Mutex
	armed bool
}

func (s *armService) HandleCommand(_ context.Context, text string) bool {
	cmd, ok := domain.ParseCommand(text)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	armed := cmd == domain.CommandArm
	changed := s.armed != armed
	s.armed = armed

	return changed
}

func (s *armService) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{State: domain.State{Armed: s.armed}}
}

// dialTestServer starts a control server on an in-memory listener.
func dialTestServer(t *testing.T, svc control.Service, opts ...Option) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	control.RegisterControlServer(srv, control.NewServer(svc))

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	opts = append(opts, WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})))

	client, err := Dial(t.Context(), "passthrough:///bufnet", opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSendCommand_Empty asserts that an empty command is rejected by the client.
func TestSendCommand_Empty(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.SendCommand(context.Background(), "")
	require.ErrorIs(t, err, errCommandRequired)
}

// TestClientRoundtrip sends commands through a real gRPC connection.
func TestClientRoundtrip(t *testing.T) {
	t.Parallel()

	client := dialTestServer(t, new(armService),
		WithCallTimeout(time.Second),
		WithActor(&Actor{Hostname: "desk", Username: "guard"}))

	result, err := client.SendCommand(t.Context(), "arm")
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.True(t, result.Snapshot.Armed)

	result, err = client.SendCommand(t.Context(), "arm")
	require.NoError(t, err)
	require.False(t, result.Changed)

	snap, err := client.GetState(t.Context())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseArmedQuiet, snap.Phase())
}

// TestCloseNil ensures Close tolerates a nil client.
func TestCloseNil(t *testing.T) {
	t.Parallel()

	var c *Client
	require.NoError(t, c.Close())
}

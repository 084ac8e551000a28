//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/vibration-alarm/internal/api/grpc/control"
	"github.com/oshokin/vibration-alarm/internal/config"
	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// Client wraps the control service client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the control service client.
	api *control.ControlClient
	// actor is attached to every command, if set.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the defaults.
	dialOptions []grpc.DialOption
}

// CommandResult is the answer to a command.
type CommandResult struct {
	// Snapshot is the state after the command.
	Snapshot domain.Snapshot
	// Changed reports whether the command changed the state.
	Changed bool
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the actor to every command.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errCommandRequired is returned when an empty command is sent.
	errCommandRequired = errors.New("command must be provided")
)

// Dial prepares a gRPC connection to the daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial vibration alarm: %w", err)
	}

	client.conn = conn
	client.api = control.NewControlClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the current state.
func (c *Client) GetState(ctx context.Context) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get state: %w", err)
	}

	snap, err := control.DecodeSnapshot(resp)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}

	return snap, nil
}

// SendCommand sends an operator command and returns the resulting state.
func (c *Client) SendCommand(ctx context.Context, command string) (*CommandResult, error) {
	if command == "" {
		return nil, errCommandRequired
	}

	callCtx, cancel := c.callContext(c.actor.outgoing(ctx))
	defer cancel()

	resp, err := c.api.SendCommand(callCtx, wrapperspb.String(command))
	if err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	snap, err := control.DecodeSnapshot(resp)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	return &CommandResult{Snapshot: snap, Changed: control.Changed(resp)}, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

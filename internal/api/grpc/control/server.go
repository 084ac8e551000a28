package control

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
)

// Metadata keys identifying who sent a command. They are logged, not trusted.
const (
	MetadataHostname = "x-actor-hostname"
	MetadataUsername = "x-actor-username"
)

// Service abstracts the controller operations the transport depends on.
type Service interface {
	HandleCommand(ctx context.Context, text string) bool
	Snapshot() domain.Snapshot
}

// Server implements ControlServer on top of a Service.
type Server struct {
	// service applies commands and reports the state.
	service Service
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{service: service}
}

// SendCommand applies an operator command and returns the resulting state.
// Unrecognized commands are accepted and leave the state unchanged.
func (s *Server) SendCommand(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := strings.TrimSpace(req.GetValue())
	if text == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}

	ctx = logger.WithKV(ctx, actorKV(ctx)...)

	changed := s.service.HandleCommand(ctx, text)
	logger.InfoKV(ctx, "Remote command received", "command", text, "changed", changed)

	result := EncodeSnapshot(s.service.Snapshot())
	result.Fields[FieldChanged] = structpb.NewBoolValue(changed)

	return result, nil
}

// GetState returns the current state.
func (s *Server) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return EncodeSnapshot(s.service.Snapshot()), nil
}

func actorKV(ctx context.Context) []any {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	kvs := make([]any, 0, 4)

	for _, key := range []string{MetadataHostname, MetadataUsername} {
		if values := md.Get(key); len(values) > 0 {
			kvs = append(kvs, strings.TrimPrefix(key, "x-actor-"), values[0])
		}
	}

	return kvs
}
